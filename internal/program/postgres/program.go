package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/learning-platform/internal"
	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
	"github.com/frahmantamala/learning-platform/internal/program"
)

type ProgramRepository struct {
	db *gorm.DB
}

func NewProgramRepository(db *gorm.DB) *ProgramRepository {
	return &ProgramRepository{db: db}
}

var _ program.RepositoryAPI = (*ProgramRepository)(nil)

func (r *ProgramRepository) GetActive(ctx context.Context) ([]*programDatamodel.Program, error) {
	var programs []*programDatamodel.Program
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("title ASC").Find(&programs).Error
	return programs, err
}

func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*programDatamodel.Program, error) {
	var p programDatamodel.Program
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrProgramNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProgramRepository) Create(ctx context.Context, p *programDatamodel.Program) error {
	return r.db.WithContext(ctx).Create(p).Error
}
