package model

import "slices"

// Role is a user role held in the application database.
type Role string

const (
	RoleMentorshipManager Role = "MentorshipManager"
	RoleMentorCoach       Role = "MentorCoach"
	RoleMentor            Role = "Mentor"
	RoleUserManager       Role = "UserManager"
)

// Preference is the per-user notification preference document.
type Preference struct {
	SMSDisabled   []NotificationType `json:"smsDisabled,omitempty"`
	EmailDisabled []NotificationType `json:"emailDisabled,omitempty"`
}

// SMSAllowed reports whether SMS of type t is allowed by the preference.
// A nil preference allows everything.
func (p *Preference) SMSAllowed(t NotificationType) bool {
	if p == nil {
		return true
	}
	return allowed(p.SMSDisabled, t)
}

// EmailAllowed reports whether email of type t is allowed by the preference.
func (p *Preference) EmailAllowed(t NotificationType) bool {
	if p == nil {
		return true
	}
	return allowed(p.EmailDisabled, t)
}

func allowed(disabled []NotificationType, t NotificationType) bool {
	return !slices.Contains(disabled, TypeBase) && !slices.Contains(disabled, t)
}

// User is the subset of a user row this service reads.
type User struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Phone      *string     `json:"phone,omitempty"`
	Email      *string     `json:"email,omitempty"`
	Preference *Preference `json:"preference,omitempty"`
}

// HasPhone reports whether the user has a non-empty phone number.
func (u User) HasPhone() bool { return u.Phone != nil && *u.Phone != "" }

// HasEmail reports whether the user has a non-empty email address.
func (u User) HasEmail() bool { return u.Email != nil && *u.Email != "" }

// DisplayName returns the user's name or a placeholder if the name is empty.
func (u User) DisplayName() string {
	if u.Name == "" {
		return "(unnamed user)"
	}
	return u.Name
}
