package service

import (
	"context"

	"agromed-backend/internal/repository"
)

type AuditLogResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	BeforeValue  string `json:"before_value"`
	AfterValue   string `json:"after_value"`
	CreatedAt    string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, resourceType, resourceID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs retrieves paginated audit entries, optionally narrowed to one
// resource, with users pre-loaded.
func (s *auditService) GetAuditLogs(ctx context.Context, resourceType, resourceID string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, resourceType, resourceID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:           l.ID.String(),
			UserID:       userID,
			Username:     username,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			BeforeValue:  l.BeforeValue,
			AfterValue:   l.AfterValue,
			CreatedAt:    l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
