package program

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

type ServiceAPI interface {
	ListPrograms(ctx context.Context) ([]ProgramResponse, error)
	GetProgram(ctx context.Context, id int64) (*ProgramResponse, error)
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

func (h *Handler) GetPrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := h.Service.ListPrograms(r.Context())
	if err != nil {
		h.Logger.Error("GetPrograms: failed to get programs", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to get programs")
		return
	}

	h.WriteJSON(w, http.StatusOK, ProgramsResponse{Programs: programs})
}

func (h *Handler) GetProgram(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "programID"), 10, 64)
	if err != nil || id <= 0 {
		h.HandleError(w, errors.NewValidationFieldError("program_id", "program_id must be a positive integer", errors.ErrCodeInvalidProgramID))
		return
	}

	program, err := h.Service.GetProgram(r.Context(), id)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, program)
}
