package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/stretchr/testify/require"
)

func TestServicePackage_CreateDefaults(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	artist := engagement.Artist(2)

	pkg, err := svc.CreateServicePackage(context.Background(), artist, &ServicePackageRequest{
		Tier:     "Premium",
		Title:    "  Aerial  ",
		Price:    99.999,
		Currency: "usd",
		Features: []string{" drone angle ", "", "night variant"},
	})
	require.NoError(t, err)
	require.Equal(t, "premium", pkg.Tier)
	require.Equal(t, "Aerial", pkg.Title)
	require.Equal(t, "USD", pkg.Currency)
	require.Equal(t, 100.0, pkg.Price)
	require.Equal(t, []string{"drone angle", "night variant"}, []string(pkg.Features))
	require.True(t, pkg.IsActive)
	require.Equal(t, 1, pkg.Version)
	require.Positive(t, pkg.DeliveryDays)
	require.Positive(t, pkg.RevisionRounds)
}

func TestServicePackage_Validation(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := svc.CreateServicePackage(ctx, engagement.Client(1), &ServicePackageRequest{
		Tier: "basic", Title: "x", Price: 10, Features: []string{"a"},
	})
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	tests := []struct {
		name string
		req  ServicePackageRequest
	}{
		{"tier", ServicePackageRequest{Tier: "gold", Title: "x", Price: 10, Features: []string{"a"}}},
		{"title", ServicePackageRequest{Tier: "basic", Title: " ", Price: 10, Features: []string{"a"}}},
		{"features", ServicePackageRequest{Tier: "basic", Title: "x", Price: 10, Features: []string{" "}}},
		{"price", ServicePackageRequest{Tier: "basic", Title: "x", Price: -1, Features: []string{"a"}}},
		{"currency", ServicePackageRequest{Tier: "basic", Title: "x", Price: 10, Currency: "dollars", Features: []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateServicePackage(ctx, engagement.Artist(2), &tt.req)
			require.ErrorIs(t, err, engagement.ErrInvalidInput)
		})
	}
}

func TestServicePackage_UpdateOwnership(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	artist := engagement.Artist(2)
	pkg := seedPackage(t, svc, artist, 2)

	req := &ServicePackageRequest{Tier: "basic", Title: "Cheaper", Price: 800, Features: []string{"1 view"}}
	_, err := svc.UpdateServicePackage(ctx, engagement.Artist(3), pkg.ID, req)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	updated, err := svc.UpdateServicePackage(ctx, artist, pkg.ID, req)
	require.NoError(t, err)
	require.Equal(t, "Cheaper", updated.Title)
	require.Equal(t, 800.0, updated.Price)
	require.Equal(t, pkg.Version+1, updated.Version)

	req.ExpectedVersion = intPtr(pkg.Version)
	_, err = svc.UpdateServicePackage(ctx, artist, pkg.ID, req)
	require.ErrorIs(t, err, engagement.ErrStaleState)

	_, err = svc.UpdateServicePackage(ctx, artist, 999, &ServicePackageRequest{Tier: "basic", Title: "x", Price: 1, Features: []string{"a"}})
	require.ErrorIs(t, err, engagement.ErrNotFound)
}

func TestListActivePackages_CheapestFirst(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	artist := engagement.Artist(2)

	for _, p := range []float64{900, 300, 600} {
		_, err := svc.CreateServicePackage(ctx, artist, &ServicePackageRequest{
			Tier: "basic", Title: "tier", Price: p, Features: []string{"a"},
		})
		require.NoError(t, err)
	}
	hidden, err := svc.CreateServicePackage(ctx, artist, &ServicePackageRequest{
		Tier: "basic", Title: "hidden", Price: 10, Features: []string{"a"},
	})
	require.NoError(t, err)
	_, err = svc.SetServicePackageActive(ctx, artist, hidden.ID, false, nil)
	require.NoError(t, err)

	pkgs, err := svc.ListActivePackages(ctx, artist.ID)
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	require.Equal(t, 300.0, pkgs[0].Price)
	require.Equal(t, 600.0, pkgs[1].Price)
	require.Equal(t, 900.0, pkgs[2].Price)

	others, err := svc.ListActivePackages(ctx, 77)
	require.NoError(t, err)
	require.Empty(t, others)
}

func TestPurchasePackage(t *testing.T) {
	svc, _, rec := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)
	pkg := seedPackage(t, svc, artist, 2)

	_, err := svc.PurchasePackage(ctx, artist, pkg.ID, &PurchasePackageRequest{ProjectDescription: "x"})
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	_, err = svc.PurchasePackage(ctx, client, pkg.ID, &PurchasePackageRequest{ProjectDescription: " "})
	require.ErrorIs(t, err, engagement.ErrInvalidInput)

	order, err := svc.PurchasePackage(ctx, client, pkg.ID, &PurchasePackageRequest{ProjectDescription: "Loft interior"})
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderPending), order.Status)
	require.Equal(t, pkg.Price, order.Price)
	require.Equal(t, pkg.RevisionRounds, order.RevisionRounds)
	require.Equal(t, artist.ID, order.ArtistID)
	require.NotNil(t, order.DeliveryDate)
	// five business days from Monday 2 March
	require.True(t, order.DeliveryDate.Equal(time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)), "due = %v", order.DeliveryDate)
	require.Contains(t, rec.actions(), "package_order.pending")

	// later edits do not touch the order
	_, err = svc.UpdateServicePackage(ctx, artist, pkg.ID, &ServicePackageRequest{
		Tier: "standard", Title: "Interior still", Price: 5000, Features: []string{"a"},
	})
	require.NoError(t, err)
	got, err := svc.GetPackageOrder(ctx, client, order.ID)
	require.NoError(t, err)
	require.Equal(t, 1200.0, got.Price)

	_, err = svc.GetPackageOrder(ctx, engagement.Client(9), order.ID)
	require.ErrorIs(t, err, engagement.ErrNotFound)
}

func TestPurchasePackage_Inactive(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	artist := engagement.Artist(2)
	pkg := seedPackage(t, svc, artist, 1)
	_, err := svc.SetServicePackageActive(ctx, artist, pkg.ID, false, nil)
	require.NoError(t, err)

	_, err = svc.PurchasePackage(ctx, engagement.Client(1), pkg.ID, &PurchasePackageRequest{ProjectDescription: "x"})
	require.ErrorIs(t, err, engagement.ErrInvalidInput)
}

func TestStartPackageOrder(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)
	pkg := seedPackage(t, svc, artist, 1)
	order, err := svc.PurchasePackage(ctx, client, pkg.ID, &PurchasePackageRequest{ProjectDescription: "x"})
	require.NoError(t, err)

	_, err = svc.StartPackageOrder(ctx, client, order.ID, nil)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	started, err := svc.StartPackageOrder(ctx, artist, order.ID, intPtr(order.Version))
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderInProgress), started.Status)
	require.Equal(t, order.Version+1, started.Version)

	_, err = svc.StartPackageOrder(ctx, artist, order.ID, nil)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition)
}
