package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/rendermarket/internal/config"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrAccountDisabled    = errors.New("account is disabled")
)

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type SignupRequest struct {
	Email               string   `json:"email" binding:"required,email"`
	Password            string   `json:"password" binding:"required,min=8"`
	FullName            string   `json:"full_name" binding:"required"`
	Role                string   `json:"role" binding:"required,oneof=artist client"`
	Country             string   `json:"country" binding:"omitempty,len=2"`
	BaseRate            *float64 `json:"base_rate"`
	RateType            string   `json:"rate_type" binding:"omitempty,oneof=per_render per_hour per_project"`
	Specialties         []string `json:"specialties"`
	AverageDeliveryDays *int     `json:"average_delivery_days"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string          `json:"token"`
	ExpireAt time.Time       `json:"expire_at"`
	Profile  *models.Profile `json:"profile"`
}

// Signup creates a profile and signs its first token.
func (s *AuthService) Signup(ctx context.Context, req *SignupRequest) (*LoginResponse, error) {
	role := engagement.Role(req.Role)
	if !role.Valid() {
		return nil, engagement.InvalidInput("role must be artist or client")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := models.Profile{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		FullName: req.FullName,
		Role:     string(role),
		Country:  strings.ToUpper(req.Country),
		IsActive: true,
	}
	// rate card fields only mean something for artists
	if role == engagement.RoleArtist {
		profile.BaseRate = req.BaseRate
		profile.RateType = req.RateType
		profile.Specialties = req.Specialties
		profile.AverageDeliveryDays = req.AverageDeliveryDays
	}

	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return s.issue(&profile)
}

// Login checks credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	var profile models.Profile
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(req.Password, profile.Password) {
		return nil, ErrInvalidCredentials
	}
	if !profile.IsActive {
		return nil, ErrAccountDisabled
	}

	now := time.Now()
	profile.LastLogin = &now
	s.db.WithContext(ctx).Model(&profile).Update("last_login", now)

	return s.issue(&profile)
}

func (s *AuthService) issue(profile *models.Profile) (*LoginResponse, error) {
	token, err := utils.GenerateToken(profile.ID, profile.Email, profile.Role, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
		Profile:  profile,
	}, nil
}

func (s *AuthService) GetProfile(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := first(s.db.WithContext(ctx), &profile, engagement.KindProfile, id); err != nil {
		return nil, err
	}
	return &profile, nil
}
