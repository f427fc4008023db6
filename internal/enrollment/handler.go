package enrollment

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

type ServiceAPI interface {
	Enroll(ctx context.Context, learnerID, programID int64) (*EnrollmentResponse, bool, error)
	ListForLearner(ctx context.Context, learnerID int64) ([]EnrollmentResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// Enroll handles POST /programs/{programID}/enrollments
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	programID, err := strconv.ParseInt(chi.URLParam(r, "programID"), 10, 64)
	if err != nil || programID <= 0 {
		h.HandleError(w, errors.NewValidationFieldError("program_id", "program_id must be a positive integer", errors.ErrCodeInvalidProgramID))
		return
	}

	enr, created, err := h.Service.Enroll(r.Context(), learner.ID, programID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.WriteJSON(w, status, enr)
}

// ListMine handles GET /enrollments
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	learner, ok := errors.LearnerFromContext(r.Context())
	if !ok {
		h.HandleError(w, errors.ErrMissingToken)
		return
	}

	enrollments, err := h.Service.ListForLearner(r.Context(), learner.ID)
	if err != nil {
		h.Logger.Error("ListMine: failed to list enrollments", "error", err, "learner_id", learner.ID)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, EnrollmentsResponse{Enrollments: enrollments})
}
