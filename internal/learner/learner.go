package learner

import (
	"time"

	learnerDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
)

type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func ProfileFromDataModel(l *learnerDatamodel.Learner) Profile {
	return Profile{
		ID:        l.ID,
		Email:     l.Email,
		Name:      l.Name,
		Phone:     l.Phone,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
	}
}
