package models

import (
	"time"

	"gorm.io/datatypes"
)

// CustomQuoteRequest is a client's direct ask to one artist.
type CustomQuoteRequest struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	ClientID       uint                        `gorm:"index;not null" json:"client_id"`
	ArtistID       uint                        `gorm:"index;not null" json:"artist_id"`
	Title          string                      `gorm:"size:200" json:"title"`
	Description    string                      `gorm:"type:text;not null" json:"description"`
	Deadline       *time.Time                  `json:"deadline,omitempty"`
	ReferenceMedia datatypes.JSONSlice[string] `json:"reference_media,omitempty"`
	Status         string                      `gorm:"size:20;index;not null" json:"status"` // pending, quoted, accepted, rejected, expired
	ExpiresAt      time.Time                   `gorm:"index" json:"expires_at"`
	Version        int                         `gorm:"not null" json:"version"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	Quote          *CustomQuote                `gorm:"foreignKey:RequestID" json:"quote,omitempty"`
}

func (CustomQuoteRequest) TableName() string { return "quote_requests" }

// CustomQuote is the artist's priced answer. At most one exists per request;
// a resubmission replaces it.
type CustomQuote struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RequestID      uint      `gorm:"uniqueIndex;not null" json:"request_id"`
	ArtistID       uint      `gorm:"index;not null" json:"artist_id"`
	ProposedPrice  float64   `json:"proposed_price"`
	Currency       string    `gorm:"size:3;not null" json:"currency"`
	DeliveryDays   int       `json:"delivery_days"`
	RevisionRounds int       `json:"revision_rounds"`
	Message        string    `gorm:"type:text" json:"message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (CustomQuote) TableName() string { return "custom_quotes" }
