package learner

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, learnerID int64) (*Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentLearner handles GET /learners/me
func (h *Handler) GetCurrentLearner(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	profile, err := h.Service.GetProfile(r.Context(), learner.ID)
	if err != nil {
		h.Logger.Error("GetCurrentLearner: service GetProfile failed", "learner_id", learner.ID, "error", err)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, profile)
}
