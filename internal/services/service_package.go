package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

var packageTiers = map[string]bool{
	"basic":    true,
	"standard": true,
	"premium":  true,
}

type ServicePackageRequest struct {
	Tier            string   `json:"tier" binding:"required,oneof=basic standard premium"`
	Title           string   `json:"title" binding:"required,max=200"`
	Description     string   `json:"description"`
	Price           float64  `json:"price" binding:"required"`
	Currency        string   `json:"currency"`
	DeliveryDays    int      `json:"delivery_days"`
	RevisionRounds  int      `json:"revision_rounds"`
	Features        []string `json:"features" binding:"required,min=1"`
	ExpectedVersion *int     `json:"expected_version"`
}

type SetPackageActiveRequest struct {
	Active          bool `json:"active"`
	ExpectedVersion *int `json:"expected_version"`
}

// packageTerms validates req and returns the package fields it sets.
func (s *EngagementService) packageTerms(req *ServicePackageRequest) (models.ServicePackage, error) {
	var terms models.ServicePackage

	tier := strings.ToLower(req.Tier)
	if !packageTiers[tier] {
		return terms, engagement.InvalidInput("tier must be basic, standard or premium")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return terms, engagement.InvalidInput("title is required")
	}
	features := make([]string, 0, len(req.Features))
	for _, f := range req.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		return terms, engagement.InvalidInput("at least one feature is required")
	}
	cur, err := NormalizeCurrency(req.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return terms, err
	}
	amount, err := price(req.Price, cur, "price")
	if err != nil {
		return terms, err
	}
	days, err := s.daysOrDefault(req.DeliveryDays, "delivery_days")
	if err != nil {
		return terms, err
	}
	rounds, err := s.roundsOrDefault(req.RevisionRounds)
	if err != nil {
		return terms, err
	}

	terms = models.ServicePackage{
		Tier:           tier,
		Title:          title,
		Description:    req.Description,
		Price:          amount,
		Currency:       cur,
		DeliveryDays:   days,
		RevisionRounds: rounds,
		Features:       features,
	}
	return terms, nil
}

// CreateServicePackage publishes a fixed-price offering for the artist.
func (s *EngagementService) CreateServicePackage(ctx context.Context, actor engagement.Actor, req *ServicePackageRequest) (*models.ServicePackage, error) {
	if err := engagement.RequireRole(actor, engagement.RoleArtist, engagement.KindServicePackage, 0); err != nil {
		return nil, err
	}
	pkg, err := s.packageTerms(req)
	if err != nil {
		return nil, err
	}

	pkg.ArtistID = actor.ID
	pkg.IsActive = true
	pkg.Version = 1
	if err := s.conn(ctx).Create(&pkg).Error; err != nil {
		return nil, fmt.Errorf("create service package: %w", err)
	}
	return &pkg, nil
}

// UpdateServicePackage edits the terms of a package. Existing orders keep
// the terms they were bought with.
func (s *EngagementService) UpdateServicePackage(ctx context.Context, actor engagement.Actor, packageID uint, req *ServicePackageRequest) (*models.ServicePackage, error) {
	t, err := s.packageTerms(req)
	if err != nil {
		return nil, err
	}

	return s.writePackage(ctx, actor, packageID, req.ExpectedVersion, map[string]any{
		"tier":            t.Tier,
		"title":           t.Title,
		"description":     t.Description,
		"price":           t.Price,
		"currency":        t.Currency,
		"delivery_days":   t.DeliveryDays,
		"revision_rounds": t.RevisionRounds,
		"features":        t.Features,
	})
}

// SetServicePackageActive lists or unlists a package.
func (s *EngagementService) SetServicePackageActive(ctx context.Context, actor engagement.Actor, packageID uint, active bool, expectedVersion *int) (*models.ServicePackage, error) {
	return s.writePackage(ctx, actor, packageID, expectedVersion, map[string]any{"is_active": active})
}

func (s *EngagementService) writePackage(ctx context.Context, actor engagement.Actor, packageID uint, expectedVersion *int, updates map[string]any) (*models.ServicePackage, error) {
	var pkg models.ServicePackage
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := first(tx, &pkg, engagement.KindServicePackage, packageID); err != nil {
			return err
		}
		if actor.Role != engagement.RoleArtist || actor.ID != pkg.ArtistID {
			return engagement.Unauthorized(engagement.KindServicePackage, pkg.ID, "", "").
				WithMessage("only the owning artist can change a package")
		}
		if err := expectVersion(engagement.KindServicePackage, pkg.ID, expectedVersion, pkg.Version); err != nil {
			return err
		}
		if err := transition(tx, &models.ServicePackage{}, engagement.KindServicePackage, pkg.ID, pkg.Version, updates); err != nil {
			return err
		}
		return tx.First(&pkg, pkg.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListActivePackages returns an artist's listed packages, cheapest first.
func (s *EngagementService) ListActivePackages(ctx context.Context, artistID uint) ([]models.ServicePackage, error) {
	var pkgs []models.ServicePackage
	if err := s.conn(ctx).
		Where("artist_id = ? AND is_active = ?", artistID, true).
		Order("price ASC, id ASC").
		Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}
