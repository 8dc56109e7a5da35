package repository

import (
	"context"
	"errors"

	"agromed-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DistributionRepository interface {
	Create(ctx context.Context, rec *model.DistributionRecord) error
	FindBySubmission(ctx context.Context, submissionID uuid.UUID) (*model.DistributionRecord, error)
	Update(ctx context.Context, rec *model.DistributionRecord) error
	AddPhoto(ctx context.Context, photo *model.DistributionPhoto) error
	AddItem(ctx context.Context, item *model.DistributionItem) error
}

type distributionRepository struct {
	db *gorm.DB
}

func NewDistributionRepository(db *gorm.DB) DistributionRepository {
	return &distributionRepository{db: db}
}

func (r *distributionRepository) Create(ctx context.Context, rec *model.DistributionRecord) error {
	return GetDB(ctx, r.db).Create(rec).Error
}

// FindBySubmission returns nil without error when the wizard has not been
// started for the submission yet.
func (r *distributionRepository) FindBySubmission(ctx context.Context, submissionID uuid.UUID) (*model.DistributionRecord, error) {
	var rec model.DistributionRecord
	err := GetDB(ctx, r.db).
		Preload("Photos").
		Preload("Items").
		First(&rec, "submission_id = ?", submissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *distributionRepository) Update(ctx context.Context, rec *model.DistributionRecord) error {
	return GetDB(ctx, r.db).Model(&model.DistributionRecord{}).
		Where("id = ?", rec.ID).
		Select("completed_step", "scan_results", "document_ref", "printed_at",
			"signed_doc_ref", "receiver_name", "receiver_identity", "notes",
			"completed_at", "updated_at").
		Updates(rec).Error
}

func (r *distributionRepository) AddPhoto(ctx context.Context, photo *model.DistributionPhoto) error {
	return GetDB(ctx, r.db).Create(photo).Error
}

func (r *distributionRepository) AddItem(ctx context.Context, item *model.DistributionItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}
