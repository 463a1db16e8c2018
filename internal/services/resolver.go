package services

import (
	"context"
	"sort"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

// MatchingResolver merges the three acquisition paths into one list of
// active engagements. It only reads.
type MatchingResolver struct {
	db *gorm.DB
}

func NewMatchingResolver(db *gorm.DB) *MatchingResolver {
	return &MatchingResolver{db: db}
}

var (
	activeProjectStatuses = []string{string(engagement.ProjectInProgress), string(engagement.ProjectDelivered)}
	activeOrderStatuses   = []string{string(engagement.OrderPending), string(engagement.OrderInProgress), string(engagement.OrderDelivered)}
)

// ListActiveEngagements returns the engagements the actor takes part in
// whose fulfillment is not finished, most recently started first.
func (r *MatchingResolver) ListActiveEngagements(ctx context.Context, actor engagement.Actor) ([]engagement.Engagement, error) {
	var column string
	switch actor.Role {
	case engagement.RoleArtist:
		column = "artist_id"
	case engagement.RoleClient:
		column = "client_id"
	default:
		return nil, engagement.Unauthorized(engagement.KindProject, 0, "", "").
			WithMessage("engagements are listed for artists and clients")
	}
	if actor.ID == 0 {
		return nil, engagement.Unauthorized(engagement.KindProject, 0, "", "")
	}

	db := r.db.WithContext(ctx)
	out := make([]engagement.Engagement, 0)

	projects, err := r.fromProjects(db, column, actor)
	if err != nil {
		return nil, err
	}
	out = append(out, projects...)

	orders, err := r.fromOrders(db, column, actor)
	if err != nil {
		return nil, err
	}
	out = append(out, orders...)

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// fromProjects covers both board applications and custom quotes, which
// share projects as their fulfillment target.
func (r *MatchingResolver) fromProjects(db *gorm.DB, column string, actor engagement.Actor) ([]engagement.Engagement, error) {
	var projects []models.Project
	if err := db.Where(column+" = ? AND artist_id IS NOT NULL AND status IN ?", actor.ID, activeProjectStatuses).
		Find(&projects).Error; err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, nil
	}

	var boardIDs, requestIDs []uint
	for _, p := range projects {
		if p.QuoteRequestID != nil {
			requestIDs = append(requestIDs, *p.QuoteRequestID)
		} else {
			boardIDs = append(boardIDs, p.ID)
		}
	}

	accepted := make(map[uint]models.Application)
	if len(boardIDs) > 0 {
		var apps []models.Application
		if err := db.Where("project_id IN ? AND status = ?", boardIDs, engagement.ApplicationAccepted).
			Find(&apps).Error; err != nil {
			return nil, err
		}
		for _, a := range apps {
			accepted[a.ProjectID] = a
		}
	}

	requests := make(map[uint]models.CustomQuoteRequest)
	if len(requestIDs) > 0 {
		var list []models.CustomQuoteRequest
		if err := db.Preload("Quote").Where("id IN ? AND status = ?", requestIDs, engagement.QuoteAccepted).
			Find(&list).Error; err != nil {
			return nil, err
		}
		for _, q := range list {
			requests[q.ID] = q
		}
	}

	out := make([]engagement.Engagement, 0, len(projects))
	for _, p := range projects {
		var src engagement.Source
		if p.QuoteRequestID != nil {
			q, ok := requests[*p.QuoteRequestID]
			if !ok {
				continue
			}
			qs := engagement.QuoteSource{RequestID: q.ID, ProjectID: p.ID}
			if q.Quote != nil {
				qs.QuoteID = q.Quote.ID
				qs.DeliveryDays = q.Quote.DeliveryDays
			}
			src = qs
		} else {
			a, ok := accepted[p.ID]
			if !ok {
				continue
			}
			src = engagement.ApplicationSource{
				ApplicationID: a.ID,
				ProjectID:     p.ID,
				QuotedPrice:   a.QuotedPrice,
				TimelineDays:  a.DeliveryTimeline,
			}
		}

		e := engagement.NewEngagement(src, engagement.ProjectRef(p.ID), p.ClientID, *p.ArtistID, actor.Role)
		e.Title = p.Title
		e.Price = p.Budget
		if p.AgreedPrice != nil {
			e.Price = *p.AgreedPrice
		}
		e.Currency = p.Currency
		e.Deadline = p.Deadline
		e.Status = p.Status
		e.RevisionRounds = p.RevisionRounds
		e.CreatedAt = p.CreatedAt
		if p.StartedAt != nil {
			e.CreatedAt = *p.StartedAt
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MatchingResolver) fromOrders(db *gorm.DB, column string, actor engagement.Actor) ([]engagement.Engagement, error) {
	var orders []models.PackageOrder
	if err := db.Where(column+" = ? AND status IN ?", actor.ID, activeOrderStatuses).Find(&orders).Error; err != nil {
		return nil, err
	}

	out := make([]engagement.Engagement, 0, len(orders))
	for _, o := range orders {
		src := engagement.PackageSource{PackageID: o.PackageID, OrderID: o.ID, Tier: o.Tier}
		e := engagement.NewEngagement(src, engagement.PackageOrderRef(o.ID), o.ClientID, o.ArtistID, actor.Role)
		e.Title = o.Title
		e.Price = o.Price
		e.Currency = o.Currency
		e.Deadline = o.DeliveryDate
		e.Status = o.Status
		e.RevisionRounds = o.RevisionRounds
		e.CreatedAt = o.CreatedAt
		out = append(out, e)
	}
	return out, nil
}
