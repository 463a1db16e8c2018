package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

type QuoteRequestRequest struct {
	ArtistID       uint       `json:"artist_id" binding:"required"`
	Title          string     `json:"title" binding:"max=200"`
	Description    string     `json:"description" binding:"required"`
	Deadline       *time.Time `json:"deadline"`
	ReferenceMedia []string   `json:"reference_media"`
}

type SubmitQuoteRequest struct {
	ProposedPrice   float64 `json:"proposed_price" binding:"required"`
	Currency        string  `json:"currency"`
	DeliveryDays    int     `json:"delivery_days"`
	RevisionRounds  int     `json:"revision_rounds"`
	Message         string  `json:"message"`
	ExpectedVersion *int    `json:"expected_version"`
}

func quoteSubject(r *models.CustomQuoteRequest) engagement.Subject {
	return engagement.Subject{
		Kind:           engagement.KindQuoteRequest,
		ID:             r.ID,
		OwnerID:        r.ClientID,
		CounterpartyID: r.ArtistID,
	}
}

// RequestCustomQuote asks one artist for a price on a brief.
func (s *EngagementService) RequestCustomQuote(ctx context.Context, actor engagement.Actor, req *QuoteRequestRequest) (*models.CustomQuoteRequest, error) {
	if err := engagement.RequireRole(actor, engagement.RoleClient, engagement.KindQuoteRequest, 0); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, engagement.InvalidInput("description is required")
	}
	if req.ArtistID == actor.ID {
		return nil, engagement.InvalidInput("cannot request a quote from yourself")
	}

	var qr models.CustomQuoteRequest
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		var artist models.Profile
		if err := first(tx, &artist, engagement.KindProfile, req.ArtistID); err != nil {
			return err
		}
		if artist.Role != string(engagement.RoleArtist) || !artist.IsActive {
			return engagement.NotFound(engagement.KindProfile, req.ArtistID).WithMessage("artist not found")
		}

		now := s.now()
		qr = models.CustomQuoteRequest{
			ClientID:       actor.ID,
			ArtistID:       artist.ID,
			Title:          req.Title,
			Description:    req.Description,
			Deadline:       req.Deadline,
			ReferenceMedia: req.ReferenceMedia,
			Status:         string(engagement.QuotePending),
			ExpiresAt:      now.Add(time.Duration(s.cfg.QuoteTTLHours) * time.Hour),
			Version:        1,
		}
		if err := tx.Create(&qr).Error; err != nil {
			return fmt.Errorf("create quote request: %w", err)
		}
		out.add(newEvent(actor, engagement.KindQuoteRequest, qr.ID, "", qr.Status, qr.ClientID, qr.ArtistID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// SubmitQuote prices a pending request, or replaces the standing quote of a
// quoted one. The previous quote is discarded.
func (s *EngagementService) SubmitQuote(ctx context.Context, actor engagement.Actor, requestID uint, req *SubmitQuoteRequest) (*models.CustomQuoteRequest, error) {
	cur, err := NormalizeCurrency(req.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	proposed, err := price(req.ProposedPrice, cur, "proposed_price")
	if err != nil {
		return nil, err
	}
	days, err := s.daysOrDefault(req.DeliveryDays, "delivery_days")
	if err != nil {
		return nil, err
	}
	rounds, err := s.roundsOrDefault(req.RevisionRounds)
	if err != nil {
		return nil, err
	}

	var qr models.CustomQuoteRequest
	err = s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &qr, engagement.KindQuoteRequest, requestID); err != nil {
			return err
		}
		from := engagement.QuoteRequestStatus(qr.Status)
		if err := engagement.QuoteRequestMachine.Authorize(actor, quoteSubject(&qr), from, engagement.QuoteQuoted); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindQuoteRequest, qr.ID, req.ExpectedVersion, qr.Version); err != nil {
			return err
		}

		// bump the request first so a concurrent resubmission loses before
		// touching the quote row
		if err := transition(tx, &models.CustomQuoteRequest{}, engagement.KindQuoteRequest, qr.ID, qr.Version, map[string]any{
			"status": string(engagement.QuoteQuoted),
		}); err != nil {
			return err
		}
		if err := tx.Where("request_id = ?", qr.ID).Delete(&models.CustomQuote{}).Error; err != nil {
			return fmt.Errorf("discard previous quote: %w", err)
		}
		quote := models.CustomQuote{
			RequestID:      qr.ID,
			ArtistID:       actor.ID,
			ProposedPrice:  proposed,
			Currency:       cur,
			DeliveryDays:   days,
			RevisionRounds: rounds,
			Message:        req.Message,
		}
		if err := tx.Create(&quote).Error; err != nil {
			return fmt.Errorf("create quote: %w", err)
		}

		out.add(newEvent(actor, engagement.KindQuoteRequest, qr.ID, string(from), string(engagement.QuoteQuoted), qr.ClientID, qr.ArtistID))
		return tx.Preload("Quote").First(&qr, qr.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// DecideQuote is the client's answer to the standing quote. Accepting
// opens a project in progress on the quoted terms.
func (s *EngagementService) DecideQuote(ctx context.Context, actor engagement.Actor, requestID uint, decision Decision, expectedVersion *int) (*models.CustomQuoteRequest, error) {
	if !decision.valid() {
		return nil, engagement.InvalidInput("decision must be accept or reject")
	}
	to := engagement.QuoteRejected
	if decision == DecisionAccept {
		to = engagement.QuoteAccepted
	}

	var qr models.CustomQuoteRequest
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := tx.Preload("Quote").First(&qr, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return engagement.NotFound(engagement.KindQuoteRequest, requestID)
			}
			return err
		}
		from := engagement.QuoteRequestStatus(qr.Status)
		if err := engagement.QuoteRequestMachine.Authorize(actor, quoteSubject(&qr), from, to); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindQuoteRequest, qr.ID, expectedVersion, qr.Version); err != nil {
			return err
		}

		if err := transition(tx, &models.CustomQuoteRequest{}, engagement.KindQuoteRequest, qr.ID, qr.Version, map[string]any{
			"status": string(to),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindQuoteRequest, qr.ID, string(from), string(to), qr.ClientID, qr.ArtistID))

		if to == engagement.QuoteAccepted {
			if qr.Quote == nil {
				return engagement.InvalidTransition(engagement.KindQuoteRequest, qr.ID, string(from), string(to)).
					WithMessage("request has no standing quote")
			}
			project, err := s.projectFromQuote(tx, &qr)
			if err != nil {
				return err
			}
			out.add(newEvent(actor, engagement.KindProject, project.ID, "", project.Status, qr.ClientID, qr.ArtistID).
				withTarget(engagement.ProjectRef(project.ID)))
		}

		return tx.Preload("Quote").First(&qr, qr.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

func (s *EngagementService) projectFromQuote(tx *gorm.DB, qr *models.CustomQuoteRequest) (*models.Project, error) {
	quote := qr.Quote
	now := s.now()

	deadline := qr.Deadline
	if deadline == nil {
		due := s.calendar.AddBusinessDays(now, quote.DeliveryDays, s.countryOf(tx, qr.ArtistID))
		deadline = &due
	}
	title := qr.Title
	if title == "" {
		title = fmt.Sprintf("Custom quote #%d", qr.ID)
	}

	artistID, requestID, agreed := qr.ArtistID, qr.ID, quote.ProposedPrice
	project := models.Project{
		ClientID:       qr.ClientID,
		ArtistID:       &artistID,
		QuoteRequestID: &requestID,
		Title:          title,
		Description:    qr.Description,
		Budget:         quote.ProposedPrice,
		Currency:       quote.Currency,
		Deadline:       deadline,
		Status:         string(engagement.ProjectInProgress),
		ReferenceMedia: qr.ReferenceMedia,
		AgreedPrice:    &agreed,
		RevisionRounds: quote.RevisionRounds,
		StartedAt:      &now,
		Version:        1,
	}
	if err := tx.Create(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, engagement.StaleState(engagement.KindQuoteRequest, qr.ID)
		}
		return nil, fmt.Errorf("create project from quote: %w", err)
	}
	return &project, nil
}

// DeclineQuoteRequest lets the artist turn down a request before quoting.
func (s *EngagementService) DeclineQuoteRequest(ctx context.Context, actor engagement.Actor, requestID uint, expectedVersion *int) (*models.CustomQuoteRequest, error) {
	return s.moveQuoteRequest(ctx, actor, requestID, engagement.QuoteRejected, expectedVersion)
}

// ExpireQuoteRequest moves an unanswered request to expired. Only the
// system actor may do this.
func (s *EngagementService) ExpireQuoteRequest(ctx context.Context, actor engagement.Actor, requestID uint) (*models.CustomQuoteRequest, error) {
	return s.moveQuoteRequest(ctx, actor, requestID, engagement.QuoteExpired, nil)
}

func (s *EngagementService) moveQuoteRequest(ctx context.Context, actor engagement.Actor, requestID uint, to engagement.QuoteRequestStatus, expectedVersion *int) (*models.CustomQuoteRequest, error) {
	var qr models.CustomQuoteRequest
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &qr, engagement.KindQuoteRequest, requestID); err != nil {
			return err
		}
		from := engagement.QuoteRequestStatus(qr.Status)
		if err := engagement.QuoteRequestMachine.Authorize(actor, quoteSubject(&qr), from, to); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindQuoteRequest, qr.ID, expectedVersion, qr.Version); err != nil {
			return err
		}
		if err := transition(tx, &models.CustomQuoteRequest{}, engagement.KindQuoteRequest, qr.ID, qr.Version, map[string]any{
			"status": string(to),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindQuoteRequest, qr.ID, string(from), string(to), qr.ClientID, qr.ArtistID))
		return tx.Preload("Quote").First(&qr, qr.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// ExpireStaleQuoteRequests expires every pending or quoted request whose
// expiry passed before now. Requests that changed concurrently are skipped.
func (s *EngagementService) ExpireStaleQuoteRequests(ctx context.Context, now time.Time) (int, error) {
	var ids []uint
	if err := s.conn(ctx).Model(&models.CustomQuoteRequest{}).
		Where("status IN ? AND expires_at < ?", []string{string(engagement.QuotePending), string(engagement.QuoteQuoted)}, now).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, err := s.ExpireQuoteRequest(ctx, engagement.System, id)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, engagement.ErrStaleState), errors.Is(err, engagement.ErrInvalidTransition):
			// answered between the scan and the write
		default:
			return expired, err
		}
	}
	return expired, nil
}

// GetQuoteRequest returns a request with its standing quote to either party.
func (s *EngagementService) GetQuoteRequest(ctx context.Context, actor engagement.Actor, requestID uint) (*models.CustomQuoteRequest, error) {
	var qr models.CustomQuoteRequest
	if err := s.conn(ctx).Preload("Quote").First(&qr, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, engagement.NotFound(engagement.KindQuoteRequest, requestID)
		}
		return nil, err
	}
	if !actor.PlaysAny(quoteSubject(&qr), []engagement.Party{engagement.PartyOwner, engagement.PartyCounterparty}) {
		return nil, engagement.NotFound(engagement.KindQuoteRequest, requestID)
	}
	return &qr, nil
}

// ListQuoteRequests returns the requests the actor sent (client) or
// received (artist), newest first.
func (s *EngagementService) ListQuoteRequests(ctx context.Context, actor engagement.Actor) ([]models.CustomQuoteRequest, error) {
	column := "client_id"
	switch actor.Role {
	case engagement.RoleArtist:
		column = "artist_id"
	case engagement.RoleClient:
	default:
		return nil, engagement.Unauthorized(engagement.KindQuoteRequest, 0, "", "")
	}

	var list []models.CustomQuoteRequest
	if err := s.conn(ctx).Preload("Quote").
		Where(column+" = ?", actor.ID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// countryOf is the calendar used for an artist's due dates.
func (s *EngagementService) countryOf(tx *gorm.DB, artistID uint) string {
	var artist models.Profile
	if err := tx.Select("country").First(&artist, artistID).Error; err == nil && artist.Country != "" {
		return artist.Country
	}
	return s.cfg.CalendarCountry
}
