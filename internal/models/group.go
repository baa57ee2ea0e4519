package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	MinGroupImages = 2
	MaxGroupImages = 4
)

// Group is a named, tagged bundle of matched images submitted for public display.
// A nil ApprovedAt means the group is pending review.
type Group struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	Name           string                      `gorm:"size:100;not null" json:"name"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	UserID         uint                        `gorm:"not null;index" json:"-"`
	User           *User                       `gorm:"foreignKey:UserID" json:"-"`
	Images         []Image                     `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"images"`
	ApprovedAt     *time.Time                  `gorm:"index" json:"approved_at,omitempty"`
	LastReviewedAt *time.Time                  `json:"last_reviewed_at,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// Pending reports whether the group is still awaiting a review decision.
func (g *Group) Pending() bool {
	return g.ApprovedAt == nil
}

// ImageKeys returns the object-store keys of the group's images.
func (g *Group) ImageKeys() []string {
	keys := make([]string, 0, len(g.Images))
	for _, img := range g.Images {
		keys = append(keys, img.ID)
	}
	return keys
}

// Image references a stored object owned by exactly one group.
type Image struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"`
	URL       string    `gorm:"size:1024;not null" json:"url"`
	GroupID   uint      `gorm:"not null;index" json:"-"`
	CreatedAt time.Time `json:"-"`
}

// GroupView is the public shape of a group returned to clients.
type GroupView struct {
	ID     uint         `json:"id"`
	Name   string       `json:"name"`
	Tags   []string     `json:"tags"`
	Images []Image      `json:"images"`
	User   *UserProfile `json:"user"`
}

// View converts a group into its public representation.
func (g *Group) View() *GroupView {
	if g == nil {
		return nil
	}
	tags := []string(g.Tags)
	if tags == nil {
		tags = []string{}
	}
	images := g.Images
	if images == nil {
		images = []Image{}
	}
	return &GroupView{
		ID:     g.ID,
		Name:   g.Name,
		Tags:   tags,
		Images: images,
		User:   g.User.Profile(),
	}
}
