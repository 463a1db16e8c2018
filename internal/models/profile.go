package models

import (
	"time"

	"gorm.io/datatypes"
)

// Profile is a marketplace identity, either an artist or a client
type Profile struct {
	ID                  uint                        `gorm:"primaryKey" json:"id"`
	Email               string                      `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password            string                      `gorm:"size:255" json:"-"` // bcrypt hash
	FullName            string                      `gorm:"size:200" json:"full_name"`
	Role                string                      `gorm:"size:20;not null;index" json:"role"` // artist, client
	BaseRate            *float64                    `json:"base_rate,omitempty"`
	RateType            string                      `gorm:"size:20" json:"rate_type,omitempty"` // per_render, per_hour, per_project
	Specialties         datatypes.JSONSlice[string] `json:"specialties,omitempty"`
	AverageDeliveryDays *int                        `json:"average_delivery_days,omitempty"`
	Country             string                      `gorm:"size:2" json:"country,omitempty"`
	IsActive            bool                        `gorm:"default:true" json:"is_active"`
	LastLogin           *time.Time                  `json:"last_login,omitempty"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
