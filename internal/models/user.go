// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Role is the authorization role attached to a user session.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents an account that can own groups and receive notifications.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Image     string    `gorm:"size:512" json:"image"`
	Role      Role      `gorm:"size:16;not null;default:USER" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the ADMIN role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserProfile is the public view of a user embedded in group payloads.
type UserProfile struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Profile returns the public profile of u.
func (u *User) Profile() *UserProfile {
	if u == nil {
		return nil
	}
	return &UserProfile{ID: u.ID, Name: u.Name, Image: u.Image}
}

// Session is what the auth provider exposes for the current caller.
type Session struct {
	UserID   uint   `json:"userId"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}
