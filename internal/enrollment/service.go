package enrollment

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/cache"
	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
)

const enrollmentsTTL = 5 * time.Minute

type Repository interface {
	CreateFree(ctx context.Context, learnerID, programID int64) (*enrollmentDatamodel.Enrollment, bool, error)
	GetByLearnerAndProgram(ctx context.Context, learnerID, programID int64) (*enrollmentDatamodel.Enrollment, error)
	ListByLearner(ctx context.Context, learnerID int64) ([]*enrollmentDatamodel.Enrollment, error)
}

type ProgramReader interface {
	GetByID(ctx context.Context, id int64) (*programDatamodel.Program, error)
}

type Service struct {
	repo     Repository
	programs ProgramReader
	cache    cache.Cache
	logger   *slog.Logger
}

func NewService(repo Repository, programs ProgramReader, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		programs: programs,
		cache:    c,
		logger:   logger,
	}
}

// Enroll gives the learner FREE access to a program. Enrolling twice returns the
// existing enrollment with created=false.
func (s *Service) Enroll(ctx context.Context, learnerID, programID int64) (*EnrollmentResponse, bool, error) {
	prog, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return nil, false, err
	}
	if !prog.IsActive {
		return nil, false, errors.ErrProgramInactive
	}

	enr, created, err := s.repo.CreateFree(ctx, learnerID, programID)
	if err != nil {
		s.logger.Error("failed to create enrollment", "error", err, "learner_id", learnerID, "program_id", programID)
		return nil, false, errors.NewInternalError("failed to create enrollment", err)
	}

	if created {
		if err := s.cache.Invalidate(ctx, cache.LearnerEnrollmentsKey(learnerID), cache.LearnerHomeKey(learnerID)); err != nil {
			s.logger.Warn("failed to invalidate enrollment cache", "error", err, "learner_id", learnerID)
		}
		s.logger.Info("learner enrolled", "enrollment_id", enr.ID, "learner_id", learnerID, "program_id", programID)
	}

	resp := ToResponse(enr)
	return &resp, created, nil
}

func (s *Service) ListForLearner(ctx context.Context, learnerID int64) ([]EnrollmentResponse, error) {
	return cache.Remember(ctx, s.cache, s.logger, cache.LearnerEnrollmentsKey(learnerID), enrollmentsTTL, func() ([]EnrollmentResponse, error) {
		rows, err := s.repo.ListByLearner(ctx, learnerID)
		if err != nil {
			return nil, err
		}
		out := make([]EnrollmentResponse, 0, len(rows))
		for _, e := range rows {
			out = append(out, ToResponse(e))
		}
		return out, nil
	})
}
