package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/learning-platform/internal"
	learnerDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
	"github.com/frahmantamala/learning-platform/internal/learner"
)

type LearnerRepository struct {
	db *gorm.DB
}

func NewLearnerRepository(db *gorm.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

var _ learner.RepositoryAPI = (*LearnerRepository)(nil)

func (r *LearnerRepository) GetByID(ctx context.Context, id int64) (*learnerDatamodel.Learner, error) {
	var l learnerDatamodel.Learner
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLearnerNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LearnerRepository) GetByEmail(ctx context.Context, email string) (*learnerDatamodel.Learner, error) {
	var l learnerDatamodel.Learner
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrLearnerNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LearnerRepository) Create(ctx context.Context, l *learnerDatamodel.Learner) error {
	return r.db.WithContext(ctx).Create(l).Error
}
