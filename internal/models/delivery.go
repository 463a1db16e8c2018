package models

import (
	"time"

	"gorm.io/datatypes"
)

// Delivery is one round of work submitted against a project or package order
type Delivery struct {
	ID         uint                        `gorm:"primaryKey" json:"id"`
	TargetKind string                      `gorm:"size:20;not null;uniqueIndex:idx_delivery_target_round" json:"target_kind"` // project, package_order
	TargetID   uint                        `gorm:"not null;uniqueIndex:idx_delivery_target_round" json:"target_id"`
	Round      int                         `gorm:"not null;uniqueIndex:idx_delivery_target_round" json:"round"`
	ArtistID   uint                        `gorm:"index;not null" json:"artist_id"`
	ClientID   uint                        `gorm:"index;not null" json:"client_id"`
	Files      datatypes.JSONSlice[string] `json:"files"`
	Note       string                      `gorm:"type:text" json:"note"`
	Status     string                      `gorm:"size:20;index;not null" json:"status"` // pending_review, accepted, revision_requested
	Version    int                         `gorm:"not null" json:"version"`
	CreatedAt  time.Time                   `json:"created_at"`
	UpdatedAt  time.Time                   `json:"updated_at"`

	// NextRound is the round the tracker accepts next: set after a revision
	// request, 0 while the round awaits review or once the cap is reached.
	NextRound int `gorm:"-" json:"next_round"`
}

func (Delivery) TableName() string { return "deliveries" }
