package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agromed-backend/internal/model"
	"agromed-backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionFilter narrows List results.
type SubmissionFilter struct {
	Status   string
	District string
	Priority string
	Page     int
	Limit    int
}

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	FindByNumber(ctx context.Context, number string) (*model.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, int64, error)
	ListStale(ctx context.Context, statuses []string, before time.Time) ([]model.Submission, error)
	// Save persists header fields guarded by the optimistic version check.
	// A stale expectedVersion yields ConflictError and writes nothing.
	Save(ctx context.Context, sub *model.Submission, expectedVersion int) error
	UpdateItem(ctx context.Context, item *model.SubmissionItem) error
	CreateApproval(ctx context.Context, record *model.ApprovalRecord) error
	NextSequence(ctx context.Context, year int) (int, error)
}

type submissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	return GetDB(ctx, r.db).Create(sub).Error
}

func (r *submissionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	var sub model.Submission
	err := GetDB(ctx, r.db).
		Preload("Items.Medicine").
		Preload("Approval").
		Preload("Distribution.Photos").
		Preload("Distribution.Items").
		Preload("Creator").
		First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("submission", id)
		}
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) FindByNumber(ctx context.Context, number string) (*model.Submission, error) {
	var sub model.Submission
	err := GetDB(ctx, r.db).Preload("Items.Medicine").First(&sub, "number = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("submission", number)
		}
		return nil, err
	}
	return &sub, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]model.Submission, int64, error) {
	var subs []model.Submission
	var total int64

	build := func() *gorm.DB {
		q := GetDB(ctx, r.db).Model(&model.Submission{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.District != "" {
			q = q.Where("district = ?", filter.District)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		return q
	}

	if err := build().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := build().
		Preload("Items.Medicine").
		Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&subs).Error; err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

func (r *submissionRepository) ListStale(ctx context.Context, statuses []string, before time.Time) ([]model.Submission, error) {
	var subs []model.Submission
	err := GetDB(ctx, r.db).
		Where("status IN ?", statuses).
		Where("updated_at < ?", before).
		Find(&subs).Error
	return subs, err
}

func (r *submissionRepository) Save(ctx context.Context, sub *model.Submission, expectedVersion int) error {
	sub.Version = expectedVersion + 1
	res := GetDB(ctx, r.db).Model(&model.Submission{}).
		Where("id = ? AND version = ?", sub.ID, expectedVersion).
		Select("status", "version", "district", "village", "farmer_group", "group_leader",
			"commodity", "total_area", "affected_area", "pest_types", "letter_number",
			"letter_date", "letter_ref", "priority", "notes", "submitted_at", "updated_at").
		Updates(sub)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		sub.Version = expectedVersion
		return apperrors.Conflict("submission %s was modified concurrently, reload and retry", sub.Number)
	}
	return nil
}

func (r *submissionRepository) UpdateItem(ctx context.Context, item *model.SubmissionItem) error {
	return GetDB(ctx, r.db).Model(&model.SubmissionItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"approved_qty":    item.ApprovedQty,
			"distributed_qty": item.DistributedQty,
			"note":            item.Note,
		}).Error
}

func (r *submissionRepository) CreateApproval(ctx context.Context, record *model.ApprovalRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

// NextSequence reserves the next per-year submission sequence. The advisory
// xact lock serializes concurrent creators for the same year prefix.
func (r *submissionRepository) NextSequence(ctx context.Context, year int) (int, error) {
	db := GetDB(ctx, r.db)
	prefix := fmt.Sprintf("SUB%d", year)

	db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix)

	var count int64
	if err := db.Model(&model.Submission{}).
		Where("number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count + 1), nil
}
