package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a client-authored open request on the marketplace board.
// Projects synthesized from an accepted custom quote carry QuoteRequestID.
type Project struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	ClientID       uint                        `gorm:"index;not null" json:"client_id"`
	ArtistID       *uint                       `gorm:"index" json:"artist_id,omitempty"`
	QuoteRequestID *uint                       `gorm:"uniqueIndex" json:"quote_request_id,omitempty"`
	Title          string                      `gorm:"size:200;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Budget         float64                     `json:"budget"`
	Currency       string                      `gorm:"size:3;not null" json:"currency"`
	Deadline       *time.Time                  `json:"deadline,omitempty"`
	Status         string                      `gorm:"size:20;index;not null" json:"status"` // open, in_progress, delivered, completed, closed
	ReferenceMedia datatypes.JSONSlice[string] `json:"reference_media,omitempty"`
	AgreedPrice    *float64                    `json:"agreed_price,omitempty"`
	RevisionRounds int                         `gorm:"default:0" json:"revision_rounds"` // agreed cap, set when work starts
	StartedAt      *time.Time                  `gorm:"index" json:"started_at,omitempty"`
	Version        int                         `gorm:"not null" json:"version"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

// Application is an artist's bid on a Project. One per (project, artist).
type Application struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProjectID        uint      `gorm:"uniqueIndex:idx_application_project_artist;not null" json:"project_id"`
	ArtistID         uint      `gorm:"uniqueIndex:idx_application_project_artist;index;not null" json:"artist_id"`
	Proposal         string    `gorm:"type:text" json:"proposal"`
	QuotedPrice      float64   `json:"quoted_price"`
	DeliveryTimeline int       `json:"delivery_timeline"` // days
	RevisionRounds   int       `json:"revision_rounds"`
	Status           string    `gorm:"size:20;index;not null" json:"status"` // pending, accepted, rejected, withdrawn
	Version          int       `gorm:"not null" json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Project          *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (Application) TableName() string { return "applications" }
