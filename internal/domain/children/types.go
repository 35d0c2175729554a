package children

import (
	"time"
)

type Child struct {
	ID             int64      `json:"id"`
	ParentID       int64      `json:"parent_id"`
	Name           string     `json:"name"`
	BirthDate      *time.Time `json:"birth_date"`
	Age            *int       `json:"age"`
	Gender         *string    `json:"gender"`
	ClassName      *string    `json:"class_name"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
	AvatarURL      *string    `json:"avatar_url"`
	Notes          *string    `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CreateChildRequest struct {
	ParentID       int64      `json:"parent_id"`
	Name           string     `json:"name"`
	BirthDate      *time.Time `json:"birth_date"`
	Age            *int       `json:"age"`
	Gender         *string    `json:"gender"`
	ClassName      *string    `json:"class_name"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
	Notes          *string    `json:"notes"`
}

// UpdateChildRequest uses pointers so omitted fields stay untouched.
type UpdateChildRequest struct {
	Name           *string    `json:"name"`
	BirthDate      *time.Time `json:"birth_date"`
	Age            *int       `json:"age"`
	Gender         *string    `json:"gender"`
	ClassName      *string    `json:"class_name"`
	EnrollmentDate *time.Time `json:"enrollment_date"`
	Notes          *string    `json:"notes"`
}
