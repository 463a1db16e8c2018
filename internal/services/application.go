package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

type SubmitApplicationRequest struct {
	Proposal         string  `json:"proposal" binding:"required"`
	QuotedPrice      float64 `json:"quoted_price" binding:"required"`
	DeliveryTimeline int     `json:"delivery_timeline"` // days
	RevisionRounds   int     `json:"revision_rounds"`
}

// DecisionRequest is the body shared by accept/reject endpoints.
type DecisionRequest struct {
	Decision        Decision `json:"decision" binding:"required,oneof=accept reject"`
	ExpectedVersion *int     `json:"expected_version"`
}

func applicationSubject(app *models.Application, clientID uint) engagement.Subject {
	return engagement.Subject{
		Kind:           engagement.KindApplication,
		ID:             app.ID,
		OwnerID:        app.ArtistID,
		CounterpartyID: clientID,
	}
}

// SubmitApplication bids on an open project. An artist can apply to a
// project once.
func (s *EngagementService) SubmitApplication(ctx context.Context, actor engagement.Actor, projectID uint, req *SubmitApplicationRequest) (*models.Application, error) {
	if err := engagement.RequireRole(actor, engagement.RoleArtist, engagement.KindApplication, 0); err != nil {
		return nil, err
	}
	if req.Proposal == "" {
		return nil, engagement.InvalidInput("proposal is required")
	}
	rounds, err := s.roundsOrDefault(req.RevisionRounds)
	if err != nil {
		return nil, err
	}
	timeline, err := s.daysOrDefault(req.DeliveryTimeline, "delivery_timeline")
	if err != nil {
		return nil, err
	}

	var app models.Application
	err = s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		var project models.Project
		if err := first(tx, &project, engagement.KindProject, projectID); err != nil {
			return err
		}
		if project.Status != string(engagement.ProjectOpen) {
			return engagement.InvalidTransition(engagement.KindProject, project.ID, project.Status, "").
				WithMessage("project is not accepting applications")
		}
		quoted, err := price(req.QuotedPrice, project.Currency, "quoted_price")
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Application{}).
			Where("project_id = ? AND artist_id = ?", project.ID, actor.ID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return engagement.DuplicateApplication(project.ID, actor.ID)
		}

		app = models.Application{
			ProjectID:        project.ID,
			ArtistID:         actor.ID,
			Proposal:         req.Proposal,
			QuotedPrice:      quoted,
			DeliveryTimeline: timeline,
			RevisionRounds:   rounds,
			Status:           string(engagement.ApplicationPending),
			Version:          1,
		}
		// the unique index settles races the count above cannot see
		if err := tx.Create(&app).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return engagement.DuplicateApplication(project.ID, actor.ID)
			}
			return fmt.Errorf("create application: %w", err)
		}

		out.add(newEvent(actor, engagement.KindApplication, app.ID, "", app.Status, actor.ID, project.ClientID).
			withTarget(engagement.ProjectRef(project.ID)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// DecideApplication is the client's answer to an application. Accepting
// starts the project with the application's terms and rejects every other
// pending application on it.
func (s *EngagementService) DecideApplication(ctx context.Context, actor engagement.Actor, applicationID uint, decision Decision, expectedVersion *int) (*models.Project, error) {
	if !decision.valid() {
		return nil, engagement.InvalidInput("decision must be accept or reject")
	}
	to := engagement.ApplicationRejected
	if decision == DecisionAccept {
		to = engagement.ApplicationAccepted
	}

	var project models.Project
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		var app models.Application
		if err := first(tx, &app, engagement.KindApplication, applicationID); err != nil {
			return err
		}
		if err := first(tx, &project, engagement.KindProject, app.ProjectID); err != nil {
			return err
		}

		from := engagement.ApplicationStatus(app.Status)
		if err := engagement.ApplicationMachine.Authorize(actor, applicationSubject(&app, project.ClientID), from, to); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindApplication, app.ID, expectedVersion, app.Version); err != nil {
			return err
		}

		ref := engagement.ProjectRef(project.ID)
		if to == engagement.ApplicationAccepted {
			projectFrom := engagement.ProjectStatus(project.Status)
			if err := engagement.ProjectMachine.Authorize(actor, projectSubject(&project), projectFrom, engagement.ProjectInProgress); err != nil {
				return err
			}
			if err := transition(tx, &models.Project{}, engagement.KindProject, project.ID, project.Version, map[string]any{
				"status":          string(engagement.ProjectInProgress),
				"artist_id":       app.ArtistID,
				"agreed_price":    app.QuotedPrice,
				"revision_rounds": app.RevisionRounds,
				"started_at":      s.now(),
			}); err != nil {
				return err
			}
			out.add(newEvent(actor, engagement.KindProject, project.ID, string(projectFrom),
				string(engagement.ProjectInProgress), project.ClientID, app.ArtistID))
		}

		if err := transition(tx, &models.Application{}, engagement.KindApplication, app.ID, app.Version, map[string]any{
			"status": string(to),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindApplication, app.ID, string(from), string(to), app.ArtistID, project.ClientID).withTarget(ref))

		if to == engagement.ApplicationAccepted {
			rejected, err := rejectPendingApplications(tx, project.ID, app.ID)
			if err != nil {
				return err
			}
			for _, sib := range rejected {
				out.add(newEvent(actor, engagement.KindApplication, sib.ID, string(engagement.ApplicationPending),
					string(engagement.ApplicationRejected), sib.ArtistID).withTarget(ref))
			}
		}

		return tx.First(&project, project.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// WithdrawApplication lets the artist retract a pending application.
func (s *EngagementService) WithdrawApplication(ctx context.Context, actor engagement.Actor, applicationID uint, expectedVersion *int) (*models.Application, error) {
	var app models.Application
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &app, engagement.KindApplication, applicationID); err != nil {
			return err
		}
		var project models.Project
		if err := first(tx, &project, engagement.KindProject, app.ProjectID); err != nil {
			return err
		}

		from := engagement.ApplicationStatus(app.Status)
		if err := engagement.ApplicationMachine.Authorize(actor, applicationSubject(&app, project.ClientID), from, engagement.ApplicationWithdrawn); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindApplication, app.ID, expectedVersion, app.Version); err != nil {
			return err
		}

		if err := transition(tx, &models.Application{}, engagement.KindApplication, app.ID, app.Version, map[string]any{
			"status": string(engagement.ApplicationWithdrawn),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindApplication, app.ID, string(from), string(engagement.ApplicationWithdrawn),
			app.ArtistID, project.ClientID).withTarget(engagement.ProjectRef(project.ID)))

		return tx.First(&app, app.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListProjectApplications returns the applications of a project to its
// owning client, oldest first.
func (s *EngagementService) ListProjectApplications(ctx context.Context, actor engagement.Actor, projectID uint) ([]models.Application, error) {
	db := s.conn(ctx)

	var project models.Project
	if err := first(db, &project, engagement.KindProject, projectID); err != nil {
		return nil, err
	}
	if !actor.Plays(projectSubject(&project), engagement.PartyOwner) {
		return nil, engagement.Unauthorized(engagement.KindProject, project.ID, "", "").
			WithMessage("only the project owner can list its applications")
	}

	var apps []models.Application
	if err := db.Where("project_id = ?", project.ID).Order("created_at ASC, id ASC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// ListArtistApplications returns the applications an artist has submitted.
func (s *EngagementService) ListArtistApplications(ctx context.Context, actor engagement.Actor) ([]models.Application, error) {
	if err := engagement.RequireRole(actor, engagement.RoleArtist, engagement.KindApplication, 0); err != nil {
		return nil, err
	}
	var apps []models.Application
	if err := s.conn(ctx).Preload("Project").
		Where("artist_id = ?", actor.ID).
		Order("created_at DESC, id DESC").
		Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

// rejectPendingApplications rejects every pending application on the
// project except keep, and returns the ones it touched.
func rejectPendingApplications(tx *gorm.DB, projectID, keep uint) ([]models.Application, error) {
	var pending []models.Application
	q := tx.Where("project_id = ? AND status = ?", projectID, engagement.ApplicationPending)
	if keep != 0 {
		q = q.Where("id <> ?", keep)
	}
	if err := q.Find(&pending).Error; err != nil {
		return nil, err
	}

	for _, app := range pending {
		if err := transition(tx, &models.Application{}, engagement.KindApplication, app.ID, app.Version, map[string]any{
			"status": string(engagement.ApplicationRejected),
		}); err != nil {
			return nil, err
		}
	}
	return pending, nil
}
