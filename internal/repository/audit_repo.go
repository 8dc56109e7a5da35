package repository

import (
	"context"

	"agromed-backend/internal/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	// Log appends an entry. Callers run it inside the same transaction as
	// the mutation it documents; a failed append fails the whole mutation.
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, resourceType, resourceID string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, resourceType, resourceID string, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	build := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.AuditLog{})
		if resourceType != "" {
			q = q.Where("resource_type = ?", resourceType)
		}
		if resourceID != "" {
			q = q.Where("resource_id = ?", resourceID)
		}
		return q
	}

	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := build().Preload("User").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
