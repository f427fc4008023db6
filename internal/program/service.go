package program

import (
	"context"
	"log/slog"

	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
)

type RepositoryAPI interface {
	GetActive(ctx context.Context) ([]*programDatamodel.Program, error)
	GetByID(ctx context.Context, id int64) (*programDatamodel.Program, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) ListPrograms(ctx context.Context) ([]ProgramResponse, error) {
	dataPrograms, err := s.repo.GetActive(ctx)
	if err != nil {
		s.logger.Error("failed to get programs from repository", "error", err)
		return nil, err
	}

	responses := make([]ProgramResponse, 0, len(dataPrograms))
	for _, dp := range dataPrograms {
		responses = append(responses, FromDataModel(dp).ToResponse())
	}

	s.logger.Debug("retrieved programs", "count", len(responses))
	return responses, nil
}

func (s *Service) GetProgram(ctx context.Context, id int64) (*ProgramResponse, error) {
	dp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := FromDataModel(dp).ToResponse()
	return &resp, nil
}
