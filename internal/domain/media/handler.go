package media

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/auth"
	"github.com/gramacare/gramacare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/videos", h.List)
	api.GET("/videos/:id", h.Get)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/videos", h.Publish)
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.Status(err), err.Error())
}

func (h *Handler) Publish(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	file, err := c.FormFile("video")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "video file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	in := PublishInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
	}
	v, err := h.svc.Publish(c.Request().Context(), doctorID, in, src)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}
