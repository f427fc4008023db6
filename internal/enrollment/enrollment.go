package enrollment

import (
	"time"

	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
)

type EnrollmentResponse struct {
	ID        int64      `json:"id"`
	ProgramID int64      `json:"program_id"`
	Type      string     `json:"type"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type EnrollmentsResponse struct {
	Enrollments []EnrollmentResponse `json:"enrollments"`
}

func ToResponse(e *enrollmentDatamodel.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		ID:        e.ID,
		ProgramID: e.ProgramID,
		Type:      e.Type,
		PaidAt:    e.PaidAt,
		CreatedAt: e.CreatedAt,
	}
}
