package claims

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gurugsv7/frauddetection/internal/platform/auth"
	"github.com/gurugsv7/frauddetection/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/claims", h.SubmitClaim, auth.RequireRole("hospital"))
	api.GET("/claims", h.ListClaims, auth.RequireRole("insurance"))
	api.GET("/claims/flagged", h.ListFlagged, auth.RequireRole("insurance"))
	api.GET("/claims/stats", h.GetStats, auth.RequireRole("insurance"))
	api.GET("/claims/audit", h.ListAuditLog, auth.RequireRole("insurance"))
	api.GET("/claims/:id", h.GetClaim, auth.RequireRole("hospital", "insurance"))
	api.PUT("/claims/:id/status", h.UpdateStatus, auth.RequireRole("hospital", "insurance"))
	api.POST("/claims/:id/rescore", h.Rescore, auth.RequireRole("insurance"))
	api.GET("/claims/:id/audit", h.GetAuditTrail, auth.RequireRole("hospital", "insurance"))
	api.GET("/hospitals/:id/claims", h.ListByHospital, auth.RequireRole("hospital", "insurance"))
}

// httpError maps domain errors to HTTP status codes at the boundary.
func httpError(err error) error {
	var ve *ValidationError
	var te *InvalidTransitionError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &te):
		return echo.NewHTTPError(http.StatusConflict, te.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	var draft ClaimDraft
	if err := c.Bind(&draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	claim, err := h.svc.SubmitClaim(c.Request().Context(), &draft, actor)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, claim)
}

func (h *Handler) GetClaim(c echo.Context) error {
	claim, err := h.svc.GetClaim(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) ListClaims(c echo.Context) error {
	items, err := h.svc.InsuranceWorklist(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListFlagged(c echo.Context) error {
	items, err := h.svc.FlaggedClaims(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListByHospital(c echo.Context) error {
	items, err := h.svc.ClaimsByHospital(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetStats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// UpdateStatusRequest is the adjudication payload.
type UpdateStatusRequest struct {
	Status         ClaimStatus `json:"status"`
	Notes          string      `json:"notes"`
	HospitalReview bool        `json:"hospital_review"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	claim, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status, req.Notes, actor, req.HospitalReview)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) Rescore(c echo.Context) error {
	if err := h.svc.Rescore(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) GetAuditTrail(c echo.Context) error {
	entries, err := h.svc.AuditTrail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *Handler) ListAuditLog(c echo.Context) error {
	entries, err := h.svc.AuditLog(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	p := pagination.FromContext(c)
	start, end := p.Bounds(len(entries))
	return c.JSON(http.StatusOK, pagination.NewResponse(entries[start:end], len(entries), p.Limit, p.Offset))
}
