package domain

import (
	"strings"
	"time"
)

// UserType is the role a user account plays.
type UserType string

const (
	UserTypeSupport UserType = "support"
	UserTypeAdmin   UserType = "admin"
	UserTypeUser    UserType = "user"
	UserTypeTAM     UserType = "tam"
)

// ParseUserType normalizes a stored type string. Unknown values are returned lowercased.
func ParseUserType(raw string) UserType {
	return UserType(strings.ToLower(strings.TrimSpace(raw)))
}

// User is any account: support staff, account manager (TAM), requester or admin.
type User struct {
	ID           int64
	Name         string
	FullName     string
	Email        string
	PasswordHash string
	Type         UserType
	CompanyIDs   []int64
	CreatedAt    time.Time
}

// DisplayName prefers the full name.
func (u *User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Name
}

// IsSupport reports whether the user is support staff.
func (u *User) IsSupport() bool {
	return u != nil && u.Type == UserTypeSupport
}

// IsTAM reports whether the user is an account manager.
func (u *User) IsTAM() bool {
	return u != nil && u.Type == UserTypeTAM
}
