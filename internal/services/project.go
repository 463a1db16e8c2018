package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Title          string     `json:"title" binding:"required,max=200"`
	Description    string     `json:"description" binding:"required"`
	Budget         float64    `json:"budget" binding:"required"`
	Currency       string     `json:"currency"`
	Deadline       *time.Time `json:"deadline"`
	ReferenceMedia []string   `json:"reference_media"`
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Search   string `form:"search"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

func projectSubject(p *models.Project) engagement.Subject {
	sub := engagement.Subject{Kind: engagement.KindProject, ID: p.ID, OwnerID: p.ClientID}
	if p.ArtistID != nil {
		sub.CounterpartyID = *p.ArtistID
	}
	return sub
}

func projectRecipients(p *models.Project) []uint {
	if p.ArtistID != nil {
		return []uint{p.ClientID, *p.ArtistID}
	}
	return []uint{p.ClientID}
}

// CreateProject posts a new open project to the board.
func (s *EngagementService) CreateProject(ctx context.Context, actor engagement.Actor, req *CreateProjectRequest) (*models.Project, error) {
	if err := engagement.RequireRole(actor, engagement.RoleClient, engagement.KindProject, 0); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, engagement.InvalidInput("title is required")
	}
	cur, err := NormalizeCurrency(req.Currency, s.cfg.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	budget, err := price(req.Budget, cur, "budget")
	if err != nil {
		return nil, err
	}
	if req.Deadline != nil && !req.Deadline.After(s.now()) {
		return nil, engagement.InvalidInput("deadline must be in the future")
	}

	project := models.Project{
		ClientID:       actor.ID,
		Title:          title,
		Description:    req.Description,
		Budget:         budget,
		Currency:       cur,
		Deadline:       req.Deadline,
		Status:         string(engagement.ProjectOpen),
		ReferenceMedia: req.ReferenceMedia,
		Version:        1,
	}

	err = s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindProject, project.ID, "", project.Status, actor.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// CloseProject withdraws an open project from the board. Pending
// applications are rejected with it.
func (s *EngagementService) CloseProject(ctx context.Context, actor engagement.Actor, projectID uint, expectedVersion *int) (*models.Project, error) {
	var project models.Project
	err := s.command(ctx, func(tx *gorm.DB, out *outbox) error {
		if err := first(tx, &project, engagement.KindProject, projectID); err != nil {
			return err
		}
		from := engagement.ProjectStatus(project.Status)
		if err := engagement.ProjectMachine.Authorize(actor, projectSubject(&project), from, engagement.ProjectClosed); err != nil {
			return err
		}
		if err := expectVersion(engagement.KindProject, project.ID, expectedVersion, project.Version); err != nil {
			return err
		}

		if err := transition(tx, &models.Project{}, engagement.KindProject, project.ID, project.Version, map[string]any{
			"status": string(engagement.ProjectClosed),
		}); err != nil {
			return err
		}
		out.add(newEvent(actor, engagement.KindProject, project.ID, string(from), string(engagement.ProjectClosed), project.ClientID))

		rejected, err := rejectPendingApplications(tx, project.ID, 0)
		if err != nil {
			return err
		}
		for _, app := range rejected {
			out.add(newEvent(actor, engagement.KindApplication, app.ID, string(engagement.ApplicationPending),
				string(engagement.ApplicationRejected), app.ArtistID).withTarget(engagement.ProjectRef(project.ID)))
		}

		return tx.First(&project, project.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// GetProject returns a project by id. Open projects are public; any other
// status is only visible to its parties.
func (s *EngagementService) GetProject(ctx context.Context, actor engagement.Actor, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := first(s.conn(ctx), &project, engagement.KindProject, projectID); err != nil {
		return nil, err
	}
	if project.Status != string(engagement.ProjectOpen) {
		sub := projectSubject(&project)
		if !actor.PlaysAny(sub, []engagement.Party{engagement.PartyOwner, engagement.PartyCounterparty}) {
			return nil, engagement.NotFound(engagement.KindProject, projectID)
		}
	}
	return &project, nil
}

// ListOpenProjects pages through the board, newest first.
func (s *EngagementService) ListOpenProjects(ctx context.Context, req *ProjectListRequest) (*ProjectListResponse, error) {
	req.Page, req.PageSize = pageBounds(req.Page, req.PageSize, 20)

	var projects []models.Project
	var total int64

	query := s.conn(ctx).Model(&models.Project{}).Where("status = ?", engagement.ProjectOpen)
	if req.Search != "" {
		like := "%" + req.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}
