package profile

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

// RegisterRoutes mounts the account endpoints on the public group and the
// profile endpoints on the authenticated group.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/signup", h.CreateAccount)
	public.POST("/auth/login", h.SignIn)
	public.POST("/auth/otp/send", h.SendOTP)
	public.POST("/auth/otp/verify", h.VerifyOTP)

	api.GET("/profiles/me", h.GetOwn)
	api.GET("/profiles/:id", h.Get)
	api.PUT("/profiles/:id", h.Update)
	api.GET("/doctors", h.ListDoctors)
}

func httpError(err error) *echo.HTTPError {
	return echo.NewHTTPError(apperr.Status(err), err.Error())
}

func (h *Handler) CreateAccount(c echo.Context) error {
	var in CreateAccountInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	account, err := h.svc.CreateAccount(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, account)
}

func (h *Handler) SignIn(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.SignIn(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) SendOTP(c echo.Context) error {
	var in struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SendOTP(c.Request().Context(), in.Phone); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var in struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	session, err := h.svc.VerifyOTP(c.Request().Context(), in.Phone, in.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) GetOwn(c echo.Context) error {
	userID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	p, err := h.svc.Get(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	callerID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.Update(c.Request().Context(), callerID, id, patch)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAvailableDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
