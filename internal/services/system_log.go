package services

import (
	"encoding/json"
	"time"

	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/models"
	"github.com/huangang/rendermarket/pkg/logger"
	"gorm.io/gorm"
)

var globalDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "info", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

func LogWarning(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "warning", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

func LogError(module, action, message string, userID *uint, ip, userAgent string, extra interface{}) {
	writeLog(&models.SystemLog{Level: "error", Module: module, Action: action, Message: message, UserID: userID, IP: ip, UserAgent: userAgent}, extra)
}

// LogEntity records an entry attached to one engagement record.
func LogEntity(level, module, action, message string, userID *uint, kind string, id uint, extra interface{}) {
	writeLog(&models.SystemLog{Level: level, Module: module, Action: action, Message: message, UserID: userID, EntityKind: kind, EntityID: id}, extra)
}

func writeLog(entry *models.SystemLog, extra interface{}) {
	if globalDB == nil {
		return
	}

	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = string(b)
		}
	}
	entry.CreatedAt = time.Now()

	if err := globalDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("[SystemLog] write failed")
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
	Level      string `form:"level"`
	Module     string `form:"module"`
	Action     string `form:"action"`
	EntityKind string `form:"-"`
	EntityID   uint   `form:"-"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	req.Page, req.PageSize = pageBounds(req.Page, req.PageSize, 20)

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.EntityKind != "" {
		query = query.Where("entity_kind = ? AND entity_id = ?", req.EntityKind, req.EntityID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

// History lists the audit entries of one fulfillment target.
func (s *SystemLogService) History(ref engagement.Ref, page, pageSize int) (*SystemLogListResponse, error) {
	return s.List(&SystemLogListRequest{
		Page:       page,
		PageSize:   pageSize,
		Module:     "engagement",
		EntityKind: string(ref.Kind.Kind()),
		EntityID:   ref.ID,
	})
}

// CleanupOldLogs deletes entries older than retentionDays and returns how
// many were removed.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
