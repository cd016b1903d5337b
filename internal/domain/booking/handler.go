package booking

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
	villager := api.Group("", auth.RequireRole(auth.RoleVillager))
	villager.POST("/bookings", h.Create)
	villager.GET("/bookings/mine", h.ListMine)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.GET("/bookings", h.ListForDoctor)

	// Any transition endpoint is open to both roles; the service decides
	// which actor may take which edge.
	api.POST("/bookings/:id/status", h.Transition)
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.Status(err), err.Error())
}

func sessionActor(c echo.Context) (Actor, error) {
	ctx := c.Request().Context()
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	return Actor{ID: id, Role: auth.RoleFromContext(ctx)}, nil
}

func (h *Handler) Create(c echo.Context) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.svc.Create(c.Request().Context(), actor.ID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

// TransitionInput names the target status for a booking.
type TransitionInput struct {
	Status string `json:"status"`
}

func (h *Handler) Transition(c echo.Context) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var in TransitionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	b, err := h.svc.Transition(c.Request().Context(), bookingID, actor, in.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListMine(c echo.Context) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), actor.ID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	actor, err := sessionActor(c)
	if err != nil {
		return err
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForDoctor(c.Request().Context(), actor.ID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
