package learner

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/learning-platform/internal/cache"
	learnerDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
)

const profileTTL = 10 * time.Minute

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*learnerDatamodel.Learner, error)
}

type Service struct {
	repo   RepositoryAPI
	cache  cache.Cache
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, c cache.Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, learnerID int64) (*Profile, error) {
	profile, err := cache.Remember(ctx, s.cache, s.logger, cache.LearnerProfileKey(learnerID), profileTTL, func() (Profile, error) {
		l, err := s.repo.GetByID(ctx, learnerID)
		if err != nil {
			return Profile{}, err
		}
		return ProfileFromDataModel(l), nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
