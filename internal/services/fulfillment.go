package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

// ReviewDecision is the client's verdict on a delivery round.
type ReviewDecision string

const (
	ReviewAccept          ReviewDecision = "accept"
	ReviewRequestRevision ReviewDecision = "request_revision"
)

type SubmitDeliveryRequest struct {
	Round           int      `json:"round" binding:"required,min=1"`
	Files           []string `json:"files" binding:"required,min=1"`
	Note            string   `json:"note"`
	ExpectedVersion *int     `json:"expected_version"` // of the project or order
}

type ReviewDeliveryRequest struct {
	Decision        ReviewDecision `json:"decision" binding:"required,oneof=accept request_revision"`
	ExpectedVersion *int           `json:"expected_version"`
}

type ApproveCompletionRequest struct {
	ExpectedVersion *int `json:"expected_version"`
}

// CompletionResult is the fulfillment target after approval.
type CompletionResult struct {
	Target  engagement.Ref `json:"target"`
	Status  string         `json:"status"`
	Version int            `json:"version"`
}

// DeliveryList is the round history of one engagement.
type DeliveryList struct {
	Target    engagement.Ref `json:"target"`
	Status    string         `json:"status"`
	Limit     int            `json:"limit"`
	NextRound int            `json:"next_round"` // 0 when no submission is expected

	// LimitReached is set when the last allowed round was sent back for
	// revision. No further round can be submitted and the engagement cannot
	// be approved until it is settled outside the tracker.
	LimitReached bool              `json:"limit_reached"`
	Items        []models.Delivery `json:"items"`
}

// target is the fulfillment view shared by projects and package orders.
type target struct {
	ref      engagement.Ref
	clientID uint
	artistID uint
	status   string
	rounds   int
	version  int
}

func loadTarget(tx *gorm.DB, ref engagement.Ref) (*target, error) {
	switch ref.Kind {
	case engagement.TargetProject:
		var p models.Project
		if err := first(tx, &p, engagement.KindProject, ref.ID); err != nil {
			return nil, err
		}
		t := &target{ref: ref, clientID: p.ClientID, status: p.Status, rounds: p.RevisionRounds, version: p.Version}
		if p.ArtistID != nil {
			t.artistID = *p.ArtistID
		}
		return t, nil
	case engagement.TargetPackageOrder:
		var o models.PackageOrder
		if err := first(tx, &o, engagement.KindPackageOrder, ref.ID); err != nil {
			return nil, err
		}
		return &target{ref: ref, clientID: o.ClientID, artistID: o.ArtistID, status: o.Status, rounds: o.RevisionRounds, version: o.Version}, nil
	}
	return nil, engagement.InvalidInput("unknown engagement kind " + string(ref.Kind))
}

func (t *target) kind() engagement.Kind { return t.ref.Kind.Kind() }

func (t *target) subject() engagement.Subject {
	return engagement.Subject{Kind: t.kind(), ID: t.ref.ID, OwnerID: t.clientID, CounterpartyID: t.artistID}
}

// limit is the number of rounds the artist may submit in total.
func (t *target) limit() int {
	if t.rounds < 1 {
		return 1
	}
	return t.rounds
}

func (t *target) statusFor(p engagement.ProjectStatus, o engagement.OrderStatus) string {
	if t.ref.Kind == engagement.TargetProject {
		return string(p)
	}
	return string(o)
}

func (t *target) authorize(actor engagement.Actor, to string) error {
	if t.ref.Kind == engagement.TargetProject {
		return engagement.ProjectMachine.Authorize(actor, t.subject(), engagement.ProjectStatus(t.status), engagement.ProjectStatus(to))
	}
	return engagement.OrderMachine.Authorize(actor, t.subject(), engagement.OrderStatus(t.status), engagement.OrderStatus(to))
}

// move writes updates to the target and bumps its version. An empty update
// only bumps the version, which serializes writers on the engagement.
func (t *target) move(tx *gorm.DB, updates map[string]any) error {
	var model any = &models.PackageOrder{}
	if t.ref.Kind == engagement.TargetProject {
		model = &models.Project{}
	}
	if err := transition(tx, model, t.kind(), t.ref.ID, t.version, updates); err != nil {
		return err
	}
	t.version++
	if s, ok := updates["status"].(string); ok {
		t.status = s
	}
	return nil
}

func nextRound(round, limit int) int {
	if round >= limit {
		return 0
	}
	return round + 1
}

func lastDelivery(tx *gorm.DB, ref engagement.Ref) (*models.Delivery, error) {
	var d models.Delivery
	err := tx.Where("target_kind = ? AND target_id = ?", string(ref.Kind), ref.ID).Order("round DESC").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SubmitDelivery records the next round of work on an in-progress
// engagement. The round must follow the last one, the last one must have
// been reviewed, and the round must not exceed the agreed limit.
func (s *EngagementService) SubmitDelivery(ctx context.Context, actor engagement.Actor, ref engagement.Ref, req *SubmitDeliveryRequest) (*models.Delivery, error) {
	if req.Round < 1 {
		return nil, engagement.InvalidInput("round must be at least 1")
	}
	if len(req.Files) == 0 {
		return nil, engagement.InvalidInput("at least one file is required")
	}

	var delivery models.Delivery
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		t, err := loadTarget(tx, ref)
		if err != nil {
			return err
		}
		if !actor.Plays(t.subject(), engagement.PartyCounterparty) {
			return engagement.Unauthorized(engagement.KindDelivery, 0, "", string(engagement.DeliveryPendingReview)).
				WithMessage("only the assigned artist can submit deliveries").
				With("target", ref.String())
		}
		if t.status != t.statusFor(engagement.ProjectInProgress, engagement.OrderInProgress) {
			return engagement.InvalidTransition(t.kind(), t.ref.ID, t.status, t.statusFor(engagement.ProjectDelivered, engagement.OrderDelivered)).
				WithMessage("engagement is not in progress")
		}
		if err := expectVersion(t.kind(), t.ref.ID, req.ExpectedVersion, t.version); err != nil {
			return err
		}

		last, err := lastDelivery(tx, ref)
		if err != nil {
			return err
		}
		expected := 1
		if last != nil {
			if last.Status == string(engagement.DeliveryPendingReview) {
				return engagement.InvalidTransition(engagement.KindDelivery, last.ID, last.Status, string(engagement.DeliveryPendingReview)).
					WithMessage("previous round is still awaiting review").
					With("round", last.Round)
			}
			expected = last.Round + 1
		}
		if req.Round != expected {
			return engagement.InvalidTransition(engagement.KindDelivery, 0, "", string(engagement.DeliveryPendingReview)).
				WithMessage(fmt.Sprintf("expected round %d, got %d", expected, req.Round)).
				With("expected_round", expected).
				With("target", ref.String())
		}
		if req.Round > t.limit() {
			return engagement.RoundLimitExceeded(t.kind(), t.ref.ID, req.Round, t.limit())
		}

		if err := t.move(tx, map[string]any{}); err != nil {
			return err
		}
		delivery = models.Delivery{
			TargetKind: string(ref.Kind),
			TargetID:   ref.ID,
			Round:      req.Round,
			ArtistID:   t.artistID,
			ClientID:   t.clientID,
			Files:      req.Files,
			Note:       req.Note,
			Status:     string(engagement.DeliveryPendingReview),
			Version:    1,
		}
		if err := tx.Create(&delivery).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return engagement.StaleState(t.kind(), t.ref.ID)
			}
			return fmt.Errorf("create delivery: %w", err)
		}
		out.add(newEvent(actor, engagement.KindDelivery, delivery.ID, "", delivery.Status, t.clientID, t.artistID).withTarget(ref))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ReviewDelivery is the client's verdict on a pending round. Accepting
// moves the engagement to delivered; requesting a revision leaves it in
// progress and opens the next round.
func (s *EngagementService) ReviewDelivery(ctx context.Context, actor engagement.Actor, deliveryID uint, decision ReviewDecision, expectedVersion *int) (*models.Delivery, error) {
	var to engagement.DeliveryStatus
	switch decision {
	case ReviewAccept:
		to = engagement.DeliveryAccepted
	case ReviewRequestRevision:
		to = engagement.DeliveryRevisionRequested
	default:
		return nil, engagement.InvalidInput("decision must be accept or request_revision")
	}

	var delivery models.Delivery
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &delivery, engagement.KindDelivery, deliveryID); err != nil {
			return err
		}
		ref := engagement.Ref{Kind: engagement.TargetKind(delivery.TargetKind), ID: delivery.TargetID}
		t, err := loadTarget(tx, ref)
		if err != nil {
			return err
		}

		from := engagement.DeliveryStatus(delivery.Status)
		sub := engagement.Subject{Kind: engagement.KindDelivery, ID: delivery.ID, OwnerID: delivery.ArtistID, CounterpartyID: delivery.ClientID}
		if err := engagement.DeliveryMachine.Authorize(actor, sub, from, to); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindDelivery, delivery.ID, expectedVersion, delivery.Version); err != nil {
			return err
		}

		if err := transition(tx, &models.Delivery{}, engagement.KindDelivery, delivery.ID, delivery.Version, map[string]any{
			"status": string(to),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindDelivery, delivery.ID, string(from), string(to), t.clientID, t.artistID).withTarget(ref))

		if to == engagement.DeliveryAccepted {
			delivered := t.statusFor(engagement.ProjectDelivered, engagement.OrderDelivered)
			parentFrom := t.status
			if err := t.authorize(actor, delivered); err != nil {
				return err
			}
			if err := t.move(tx, map[string]any{"status": delivered}); err != nil {
				return err
			}
			out.add(newEvent(actor, t.kind(), t.ref.ID, parentFrom, delivered, t.clientID, t.artistID).withTarget(ref))
		} else if err := t.move(tx, map[string]any{}); err != nil {
			return err
		}

		if err := tx.First(&delivery, delivery.ID).Error; err != nil {
			return err
		}
		if to == engagement.DeliveryRevisionRequested {
			delivery.NextRound = nextRound(delivery.Round, t.limit())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// ApproveCompletion closes out a delivered engagement.
func (s *EngagementService) ApproveCompletion(ctx context.Context, actor engagement.Actor, ref engagement.Ref, expectedVersion *int) (*CompletionResult, error) {
	var result CompletionResult
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		t, err := loadTarget(tx, ref)
		if err != nil {
			return err
		}
		completed := t.statusFor(engagement.ProjectCompleted, engagement.OrderCompleted)
		from := t.status
		if err := t.authorize(actor, completed); err != nil {
			return err
		}
		if err := expectVersion(t.kind(), t.ref.ID, expectedVersion, t.version); err != nil {
			return err
		}
		if err := t.move(tx, map[string]any{"status": completed}); err != nil {
			return err
		}
		out.add(newEvent(actor, t.kind(), t.ref.ID, from, completed, t.clientID, t.artistID).withTarget(ref))

		result = CompletionResult{Target: ref, Status: t.status, Version: t.version}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDeliveries returns every round of an engagement to its parties.
func (s *EngagementService) ListDeliveries(ctx context.Context, actor engagement.Actor, ref engagement.Ref) (*DeliveryList, error) {
	db := s.conn(ctx)
	t, err := loadTarget(db, ref)
	if err != nil {
		return nil, err
	}
	if !actor.PlaysAny(t.subject(), []engagement.Party{engagement.PartyOwner, engagement.PartyCounterparty}) {
		return nil, engagement.Unauthorized(t.kind(), t.ref.ID, "", "").
			WithMessage("only the parties of an engagement can see its deliveries")
	}

	var items []models.Delivery
	if err := db.Where("target_kind = ? AND target_id = ?", string(ref.Kind), ref.ID).
		Order("round ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	list := &DeliveryList{Target: ref, Status: t.status, Limit: t.limit(), Items: items}
	if t.status == t.statusFor(engagement.ProjectInProgress, engagement.OrderInProgress) {
		switch {
		case len(items) == 0:
			list.NextRound = 1
		case items[len(items)-1].Status == string(engagement.DeliveryRevisionRequested):
			list.NextRound = nextRound(items[len(items)-1].Round, t.limit())
			list.LimitReached = list.NextRound == 0
		}
	}
	return list, nil
}
