package models

import (
	"regexp"
	"strings"
	"time"
)

// Role represents the available roles for the RBAC system.
type Role string

const (
	RoleCitizen Role = "citizen"
	RolePolice  Role = "police"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleCitizen, RolePolice, RoleAdmin:
		return true
	}
	return false
}

// User represents an identity stored in the users table. Credentials live
// here; role and contact metadata live on the 1:1 Profile.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Profile carries role and contact metadata attached 1:1 to a user.
type Profile struct {
	UserID         string    `db:"user_id" json:"user_id"`
	Role           Role      `db:"role" json:"role"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number,omitempty"`
	Address        string    `db:"address" json:"address,omitempty"`
	BadgeNumber    string    `db:"badge_number" json:"badge_number,omitempty"`
	Department     string    `db:"department" json:"department,omitempty"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// IsPoliceOrAdmin reports whether the profile grants staff capabilities.
func (p *Profile) IsPoliceOrAdmin() bool {
	return p != nil && (p.Role == RolePolice || p.Role == RoleAdmin)
}

// CanManageUsers reports whether the profile grants user administration.
func (p *Profile) CanManageUsers() bool {
	return p != nil && p.Role == RoleAdmin
}

// Normalize clears badge number and department for non-police roles. Callers
// must invoke it before every save so only police profiles ever carry badge
// and department values.
func (p *Profile) Normalize() {
	if p.Role != RolePolice {
		p.BadgeNumber = ""
		p.Department = ""
	}
}

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// ValidPhoneNumber checks the loose international phone pattern. Empty values
// are allowed; the field is optional.
func ValidPhoneNumber(phone string) bool {
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// MissingPoliceFields returns field errors for a police profile missing its
// badge number or department. Nil means the invariant holds.
func (p *Profile) MissingPoliceFields() map[string]string {
	if p.Role != RolePolice {
		return nil
	}
	fields := make(map[string]string)
	if strings.TrimSpace(p.BadgeNumber) == "" {
		fields["badge_number"] = "Badge number is required for police officers."
	}
	if strings.TrimSpace(p.Department) == "" {
		fields["department"] = "Department is required for police officers."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Account bundles a user with its profile. Registration returns the fully
// formed aggregate from one call.
type Account struct {
	User    User    `json:"user"`
	Profile Profile `json:"profile"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *Role
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
