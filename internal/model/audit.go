package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	ActionCreateSubmission    = "CREATE_SUBMISSION"
	ActionSubmitSubmission    = "SUBMIT_SUBMISSION"
	ActionStartReview         = "START_REVIEW"
	ActionApproveSubmission   = "APPROVE_SUBMISSION"
	ActionRejectSubmission    = "REJECT_SUBMISSION"
	ActionCancelSubmission    = "CANCEL_SUBMISSION"
	ActionExpireSubmission    = "EXPIRE_SUBMISSION"
	ActionBeginDistribution   = "BEGIN_DISTRIBUTION"
	ActionScanValidation      = "DISTRIBUTION_SCAN_VALIDATION"
	ActionAttachPhoto         = "DISTRIBUTION_ATTACH_PHOTO"
	ActionGenerateDocument    = "DISTRIBUTION_GENERATE_DOCUMENT"
	ActionUploadSignedDoc     = "DISTRIBUTION_UPLOAD_SIGNED_DOC"
	ActionConfirmDistribution = "DISTRIBUTION_CONFIRM"
	ActionCreateMedicine      = "CREATE_MEDICINE"
	ActionCreateStockBatch    = "CREATE_STOCK_BATCH"
	ActionStockDecrement      = "STOCK_DECREMENT"
)

// Audit resource types
const (
	ResourceSubmission   = "submission"
	ResourceStockBatch   = "stock_batch"
	ResourceMedicine     = "medicine"
	ResourceDistribution = "distribution"
)

// AuditLog tracks Who, What, and When for every state transition and
// quantity change. Rows are append-only: never updated, never deleted, and
// always written inside the same transaction as the mutation they document.
type AuditLog struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for the system sweeper
	User         *User      `gorm:"foreignKey:UserID" json:"user"`
	Action       string     `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType string     `gorm:"type:varchar(30);not null;index" json:"resource_type"`
	ResourceID   string     `gorm:"type:varchar(50);index" json:"resource_id"`
	BeforeValue  string     `gorm:"type:jsonb" json:"before_value"` // Snapshot of changed fields before the mutation
	AfterValue   string     `gorm:"type:jsonb" json:"after_value"`  // Snapshot after the mutation
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}
