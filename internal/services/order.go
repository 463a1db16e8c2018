package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

type PurchasePackageRequest struct {
	ProjectDescription string   `json:"project_description" binding:"required"`
	ReferenceMedia     []string `json:"reference_media"`
}

type StartOrderRequest struct {
	ExpectedVersion *int `json:"expected_version"`
}

func orderSubject(o *models.PackageOrder) engagement.Subject {
	return engagement.Subject{
		Kind:           engagement.KindPackageOrder,
		ID:             o.ID,
		OwnerID:        o.ClientID,
		CounterpartyID: o.ArtistID,
	}
}

// PurchasePackage orders an active package. Price, currency, delivery days
// and revision rounds are copied onto the order.
func (s *EngagementService) PurchasePackage(ctx context.Context, actor engagement.Actor, packageID uint, req *PurchasePackageRequest) (*models.PackageOrder, error) {
	if err := engagement.RequireRole(actor, engagement.RoleClient, engagement.KindPackageOrder, 0); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProjectDescription) == "" {
		return nil, engagement.InvalidInput("project_description is required")
	}

	var order models.PackageOrder
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		var pkg models.ServicePackage
		if err := first(tx, &pkg, engagement.KindServicePackage, packageID); err != nil {
			return err
		}
		if !pkg.IsActive {
			return engagement.InvalidInput("package is not available for purchase").With("package_id", pkg.ID)
		}
		if pkg.ArtistID == actor.ID {
			return engagement.InvalidInput("cannot purchase your own package")
		}

		due := s.calendar.AddBusinessDays(s.now(), pkg.DeliveryDays, s.countryOf(tx, pkg.ArtistID))
		order = models.PackageOrder{
			PackageID:          pkg.ID,
			ClientID:           actor.ID,
			ArtistID:           pkg.ArtistID,
			Title:              pkg.Title,
			Tier:               pkg.Tier,
			Price:              pkg.Price,
			Currency:           pkg.Currency,
			DeliveryDays:       pkg.DeliveryDays,
			RevisionRounds:     pkg.RevisionRounds,
			ProjectDescription: req.ProjectDescription,
			ReferenceMedia:     req.ReferenceMedia,
			DeliveryDate:       &due,
			Status:             string(engagement.OrderPending),
			Version:            1,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create package order: %w", err)
		}
		out.add(newEvent(actor, engagement.KindPackageOrder, order.ID, "", order.Status, order.ClientID, order.ArtistID).
			withTarget(engagement.PackageOrderRef(order.ID)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// StartPackageOrder is the artist picking up a pending order.
func (s *EngagementService) StartPackageOrder(ctx context.Context, actor engagement.Actor, orderID uint, expectedVersion *int) (*models.PackageOrder, error) {
	var order models.PackageOrder
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &order, engagement.KindPackageOrder, orderID); err != nil {
			return err
		}
		from := engagement.OrderStatus(order.Status)
		if err := engagement.OrderMachine.Authorize(actor, orderSubject(&order), from, engagement.OrderInProgress); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindPackageOrder, order.ID, expectedVersion, order.Version); err != nil {
			return err
		}
		if err := transition(tx, &models.PackageOrder{}, engagement.KindPackageOrder, order.ID, order.Version, map[string]any{
			"status": string(engagement.OrderInProgress),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindPackageOrder, order.ID, string(from), string(engagement.OrderInProgress),
			order.ClientID, order.ArtistID).withTarget(engagement.PackageOrderRef(order.ID)))
		return tx.First(&order, order.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPackageOrder returns an order to either of its parties.
func (s *EngagementService) GetPackageOrder(ctx context.Context, actor engagement.Actor, orderID uint) (*models.PackageOrder, error) {
	var order models.PackageOrder
	if err := first(s.conn(ctx), &order, engagement.KindPackageOrder, orderID); err != nil {
		return nil, err
	}
	if !actor.PlaysAny(orderSubject(&order), []engagement.Party{engagement.PartyOwner, engagement.PartyCounterparty}) {
		return nil, engagement.NotFound(engagement.KindPackageOrder, orderID)
	}
	return &order, nil
}
