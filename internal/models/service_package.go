package models

import (
	"time"

	"gorm.io/datatypes"
)

// ServicePackage is an artist-authored fixed-price offering
type ServicePackage struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	ArtistID       uint                        `gorm:"index;not null" json:"artist_id"`
	Tier           string                      `gorm:"size:20;not null" json:"tier"` // basic, standard, premium
	Title          string                      `gorm:"size:200;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Price          float64                     `json:"price"`
	Currency       string                      `gorm:"size:3;not null" json:"currency"`
	DeliveryDays   int                         `json:"delivery_days"`
	RevisionRounds int                         `json:"revision_rounds"`
	Features       datatypes.JSONSlice[string] `json:"features"`
	IsActive       bool                        `gorm:"index" json:"is_active"`
	Version        int                         `gorm:"not null" json:"version"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (ServicePackage) TableName() string { return "service_packages" }

// PackageOrder is a client's purchase of a ServicePackage. Terms are copied
// at purchase and never follow later package edits.
type PackageOrder struct {
	ID                 uint                        `gorm:"primaryKey" json:"id"`
	PackageID          uint                        `gorm:"index;not null" json:"package_id"`
	ClientID           uint                        `gorm:"index;not null" json:"client_id"`
	ArtistID           uint                        `gorm:"index;not null" json:"artist_id"`
	Title              string                      `gorm:"size:200" json:"title"`
	Tier               string                      `gorm:"size:20" json:"tier"`
	Price              float64                     `json:"price"`
	Currency           string                      `gorm:"size:3;not null" json:"currency"`
	DeliveryDays       int                         `json:"delivery_days"`
	RevisionRounds     int                         `json:"revision_rounds"`
	ProjectDescription string                      `gorm:"type:text" json:"project_description"`
	ReferenceMedia     datatypes.JSONSlice[string] `json:"reference_media,omitempty"`
	DeliveryDate       *time.Time                  `json:"delivery_date,omitempty"`
	Status             string                      `gorm:"size:20;index;not null" json:"status"` // pending, in_progress, delivered, completed
	Version            int                         `gorm:"not null" json:"version"`
	CreatedAt          time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
}

func (PackageOrder) TableName() string { return "package_orders" }
