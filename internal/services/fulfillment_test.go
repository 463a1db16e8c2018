package services

import (
	"context"
	"errors"
	"testing"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/stretchr/testify/require"
)

func seedPackage(t *testing.T, svc *EngagementService, artist engagement.Actor, rounds int) *models.ServicePackage {
	t.Helper()
	pkg, err := svc.CreateServicePackage(context.Background(), artist, &ServicePackageRequest{
		Tier:           "standard",
		Title:          "Interior still",
		Price:          1200,
		DeliveryDays:   5,
		RevisionRounds: rounds,
		Features:       []string{"2 views", "4K output"},
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	return pkg
}

func startedOrder(t *testing.T, svc *EngagementService, client, artist engagement.Actor, rounds int) *models.PackageOrder {
	t.Helper()
	pkg := seedPackage(t, svc, artist, rounds)
	order, err := svc.PurchasePackage(context.Background(), client, pkg.ID, &PurchasePackageRequest{ProjectDescription: "Kitchen"})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	order, err = svc.StartPackageOrder(context.Background(), artist, order.ID, nil)
	if err != nil {
		t.Fatalf("start order: %v", err)
	}
	return order
}

func submit(svc *EngagementService, artist engagement.Actor, ref engagement.Ref, round int) (*models.Delivery, error) {
	return svc.SubmitDelivery(context.Background(), artist, ref, &SubmitDeliveryRequest{
		Round: round,
		Files: []string{"renders/view-a.png"},
		Note:  "first pass",
	})
}

func TestPackageScenario_RoundLimit(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)

	order := startedOrder(t, svc, client, artist, 2)
	ref := engagement.PackageOrderRef(order.ID)

	d1, err := submit(svc, artist, ref, 1)
	require.NoError(t, err)
	require.Zero(t, d1.NextRound, "round 1 awaits review")
	reviewed, err := svc.ReviewDelivery(ctx, client, d1.ID, ReviewRequestRevision, nil)
	require.NoError(t, err)
	require.Equal(t, string(engagement.DeliveryRevisionRequested), reviewed.Status)
	require.Equal(t, 2, reviewed.NextRound)

	d2, err := submit(svc, artist, ref, 2)
	require.NoError(t, err)
	require.Zero(t, d2.NextRound)
	_, err = svc.ReviewDelivery(ctx, client, d2.ID, ReviewRequestRevision, nil)
	require.NoError(t, err)

	_, err = submit(svc, artist, ref, 3)
	require.ErrorIs(t, err, engagement.ErrRoundLimitExceeded)

	var e *engagement.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, 3, e.Meta["round"])
	require.Equal(t, 2, e.Meta["limit"])

	list, err := svc.ListDeliveries(ctx, artist, ref)
	require.NoError(t, err)
	require.True(t, list.LimitReached)
	require.Zero(t, list.NextRound)

	_, err = svc.ApproveCompletion(ctx, client, ref, nil)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition)

	// revisions never regress the order
	current, err := svc.GetPackageOrder(ctx, client, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderInProgress), current.Status)
}

func TestSubmitDelivery_RoundSequence(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)
	project := seedOpenProject(t, svc, client)
	app := seedApplication(t, svc, artist, project.ID, 3)
	_, err := svc.DecideApplication(ctx, client, app.ID, DecisionAccept, nil)
	require.NoError(t, err)
	ref := engagement.ProjectRef(project.ID)

	_, err = submit(svc, artist, ref, 2)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition, "first round must be 1")

	d1, err := submit(svc, artist, ref, 1)
	require.NoError(t, err)

	_, err = submit(svc, artist, ref, 2)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition, "round 1 still awaits review")

	_, err = svc.ReviewDelivery(ctx, client, d1.ID, ReviewRequestRevision, nil)
	require.NoError(t, err)

	// N = 1 exists: N+2 is rejected, N+1 is accepted
	_, err = submit(svc, artist, ref, 3)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition)
	var e *engagement.Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, 2, e.Meta["expected_round"])

	d2, err := submit(svc, artist, ref, 2)
	require.NoError(t, err)
	require.Equal(t, 2, d2.Round)
	require.Zero(t, d2.NextRound)
}

func TestSubmitDelivery_RequiresInProgress(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	client, artist := engagement.Client(1), engagement.Artist(2)

	pkg := seedPackage(t, svc, artist, 1)
	order, err := svc.PurchasePackage(context.Background(), client, pkg.ID, &PurchasePackageRequest{ProjectDescription: "Bath"})
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderPending), order.Status)

	_, err = submit(svc, artist, engagement.PackageOrderRef(order.ID), 1)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition)

	_, err = submit(svc, artist, engagement.PackageOrderRef(404), 1)
	require.ErrorIs(t, err, engagement.ErrNotFound)
}

func TestSubmitDelivery_OnlyAssignedArtist(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	client, artist := engagement.Client(1), engagement.Artist(2)
	order := startedOrder(t, svc, client, artist, 1)
	ref := engagement.PackageOrderRef(order.ID)

	_, err := submit(svc, engagement.Artist(3), ref, 1)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)
	_, err = submit(svc, client, ref, 1)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)
}

func TestAcceptDeliveryThenApprove(t *testing.T) {
	svc, _, rec := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)
	order := startedOrder(t, svc, client, artist, 2)
	ref := engagement.PackageOrderRef(order.ID)

	d1, err := submit(svc, artist, ref, 1)
	require.NoError(t, err)

	_, err = svc.ReviewDelivery(ctx, artist, d1.ID, ReviewAccept, nil)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	_, err = svc.ApproveCompletion(ctx, client, ref, nil)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition, "nothing delivered yet")

	accepted, err := svc.ReviewDelivery(ctx, client, d1.ID, ReviewAccept, nil)
	require.NoError(t, err)
	require.Equal(t, string(engagement.DeliveryAccepted), accepted.Status)
	require.Zero(t, accepted.NextRound)

	delivered, err := svc.GetPackageOrder(ctx, client, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderDelivered), delivered.Status)

	_, err = svc.ReviewDelivery(ctx, client, d1.ID, ReviewRequestRevision, nil)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition, "reviewed deliveries are terminal")

	_, err = svc.ApproveCompletion(ctx, artist, ref, nil)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)

	done, err := svc.ApproveCompletion(ctx, client, ref, nil)
	require.NoError(t, err)
	require.Equal(t, string(engagement.OrderCompleted), done.Status)
	require.Equal(t, delivered.Version+1, done.Version)

	require.Contains(t, rec.actions(), "package_order.delivered")
	require.Contains(t, rec.actions(), "package_order.completed")

	_, err = submit(svc, artist, ref, 2)
	require.ErrorIs(t, err, engagement.ErrInvalidTransition)
}

func TestListDeliveries(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	ctx := context.Background()
	client, artist := engagement.Client(1), engagement.Artist(2)
	order := startedOrder(t, svc, client, artist, 2)
	ref := engagement.PackageOrderRef(order.ID)

	list, err := svc.ListDeliveries(ctx, client, ref)
	require.NoError(t, err)
	require.Empty(t, list.Items)
	require.Equal(t, 1, list.NextRound)
	require.Equal(t, 2, list.Limit)

	d1, err := submit(svc, artist, ref, 1)
	require.NoError(t, err)
	list, err = svc.ListDeliveries(ctx, artist, ref)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Zero(t, list.NextRound, "awaiting review")

	_, err = svc.ReviewDelivery(ctx, client, d1.ID, ReviewRequestRevision, nil)
	require.NoError(t, err)
	list, err = svc.ListDeliveries(ctx, artist, ref)
	require.NoError(t, err)
	require.Equal(t, 2, list.NextRound)
	require.False(t, list.LimitReached)

	_, err = svc.ListDeliveries(ctx, engagement.Client(7), ref)
	require.ErrorIs(t, err, engagement.ErrUnauthorized)
}

func TestSubmitDelivery_StaleEngagementVersion(t *testing.T) {
	svc, _, _ := newTestEngine(t)
	client, artist := engagement.Client(1), engagement.Artist(2)
	order := startedOrder(t, svc, client, artist, 1)

	_, err := svc.SubmitDelivery(context.Background(), artist, engagement.PackageOrderRef(order.ID), &SubmitDeliveryRequest{
		Round: 1, Files: []string{"a.png"}, ExpectedVersion: intPtr(order.Version - 1),
	})
	require.ErrorIs(t, err, engagement.ErrStaleState)
}
