package users

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateEmail    = errors.New("a user with that email already exists")
	ErrDuplicatePhone    = errors.New("a user with that phone number already exists")
	QueryTimeoutDuration = time.Second * 5
)

// Roles stored on the profile row. Admins manage children, reports, news and
// gallery; parents read their own children's data and pay tuition.
const (
	RoleParent = "parent"
	RoleAdmin  = "admin"
)

type User struct {
	ID           int64          `json:"id"`
	FullName     string         `json:"full_name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Role         string         `json:"role"`
	Password     password       `json:"-"`
	AvatarURL    sql.NullString `json:"avatar_url" swaggertype:"string"`
	RefreshToken string         `json:"-"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// password keeps the plaintext out of JSON and the hash out of handlers.
type password struct {
	text *string `json:"-"`
	hash []byte  `json:"-"`
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}
