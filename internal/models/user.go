package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleVerifier Role = "verifier"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleVerifier, RoleAdmin:
		return Role(s), nil
	case "":
		return RoleUser, nil
	}
	return "", errors.New("unknown role: " + s)
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 {
		return errors.New("username too short")
	}
	if !strings.Contains(u.Email, "@") {
		return errors.New("invalid email")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// Actor identifies who is performing a core operation. It is passed
// explicitly into every service call; the core never reads an ambient
// security context.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsVerifier() bool { return a.Role == RoleVerifier || a.Role == RoleAdmin }
func (a Actor) IsAdmin() bool    { return a.Role == RoleAdmin }
