package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/learning-platform/internal"
	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	"github.com/frahmantamala/learning-platform/internal/enrollment"
)

type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

var _ enrollment.Repository = (*EnrollmentRepository)(nil)

// CreateFree inserts a FREE enrollment unless the (learner, program) pair already exists.
func (r *EnrollmentRepository) CreateFree(ctx context.Context, learnerID, programID int64) (*enrollmentDatamodel.Enrollment, bool, error) {
	enr := &enrollmentDatamodel.Enrollment{
		LearnerID: learnerID,
		ProgramID: programID,
		Type:      enrollmentDatamodel.TypeFree,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}, {Name: "program_id"}},
			DoNothing: true,
		}).
		Create(enr)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert enrollment: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return enr, true, nil
	}

	existing, err := r.GetByLearnerAndProgram(ctx, learnerID, programID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *EnrollmentRepository) GetByLearnerAndProgram(ctx context.Context, learnerID, programID int64) (*enrollmentDatamodel.Enrollment, error) {
	var enr enrollmentDatamodel.Enrollment
	err := r.db.WithContext(ctx).
		Where("learner_id = ? AND program_id = ?", learnerID, programID).
		First(&enr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return &enr, nil
}

func (r *EnrollmentRepository) ListByLearner(ctx context.Context, learnerID int64) ([]*enrollmentDatamodel.Enrollment, error) {
	var enrollments []*enrollmentDatamodel.Enrollment
	err := r.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}
