package usage

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/auth"
	"github.com/scribeflow/scribeflow/internal/projects"
)

// Handler exposes the usage read endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetQuota handles GET /api/v1/usage/quota.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.svc.QuotaStatus(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, status)
}

// ListRollups handles GET /api/v1/usage/rollups.
func (h *Handler) ListRollups(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := projects.ParseListParams(r)
	offset := (params.Page - 1) * params.PageSize

	rollups, total, err := h.svc.ListRollups(r.Context(), userID, params.PageSize, offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if rollups == nil {
		rollups = []*UsageRollup{}
	}
	api.JSONPaginated(w, http.StatusOK, rollups, int64(total), params.Page, params.PageSize)
}
