package enrollment

import "time"

const (
	TypeFree  = "FREE"
	TypePaid  = "PAID"
	TypeAdmin = "ADMIN"
)

type Enrollment struct {
	ID        int64      `gorm:"primaryKey"`
	LearnerID int64      `gorm:"column:learner_id;not null;uniqueIndex:ux_enrollments_learner_program,priority:1"`
	ProgramID int64      `gorm:"column:program_id;not null;uniqueIndex:ux_enrollments_learner_program,priority:2"`
	Type      string     `gorm:"column:type;not null;default:FREE"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// IsEntitled reports whether the learner already has paid-level access.
func (e *Enrollment) IsEntitled() bool {
	return e.Type == TypePaid || e.Type == TypeAdmin
}
