package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Submission statuses. The closed set lives here; the legal transitions
// between them live in internal/workflow.
const (
	StatusDraft             = "draft"
	StatusSubmitted         = "submitted"
	StatusUnderReview       = "under_review"
	StatusApproved          = "approved"
	StatusPartiallyApproved = "partially_approved"
	StatusRejected          = "rejected"
	StatusReadyDistribution = "ready_distribution"
	StatusDistributing      = "distributing"
	StatusCompleted         = "completed"
	StatusCancelled         = "cancelled"
	StatusExpired           = "expired"
)

// Priority levels for a submission
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Submission is a field request for medicines: one farmer group, one
// affected area, one or more medicine line items. Number is assigned at
// creation (SUB<year><seq>) and never changes. Version backs the
// optimistic-lock save; every status change must go through the workflow
// transition table.
type Submission struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Number       string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"`
	Status       string          `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	Version      int             `gorm:"not null;default:1" json:"version"`
	District     string          `gorm:"type:varchar(100);not null;index" json:"district"`
	Village      string          `gorm:"type:varchar(100);not null" json:"village"`
	FarmerGroup  string          `gorm:"type:varchar(255);not null" json:"farmer_group"`
	GroupLeader  string          `gorm:"type:varchar(255);not null" json:"group_leader"`
	Commodity    string          `gorm:"type:varchar(100);not null" json:"commodity"`
	TotalArea    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_area"`    // hectares
	AffectedArea decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"affected_area"` // hectares, <= TotalArea
	PestTypes    []string        `gorm:"serializer:json;type:jsonb" json:"pest_types"`
	LetterNumber string          `gorm:"type:varchar(100)" json:"letter_number"`
	LetterDate   *time.Time      `json:"letter_date"`
	LetterRef    string          `gorm:"type:varchar(255)" json:"letter_ref"` // stored file reference
	Priority     string          `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedBy    *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Creator      *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Items        []SubmissionItem    `gorm:"foreignKey:SubmissionID" json:"items"`
	Approval     *ApprovalRecord     `gorm:"foreignKey:SubmissionID" json:"approval,omitempty"`
	Distribution *DistributionRecord `gorm:"foreignKey:SubmissionID" json:"distribution,omitempty"`
	SubmittedAt  *time.Time          `json:"submitted_at"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// IsTerminal reports whether status admits no further transitions.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// SubmissionItem is one requested medicine line. The quantity chain
// distributed <= approved <= requested must hold after every mutation;
// workflow.CheckItemQuantities is the single enforcement point.
type SubmissionItem struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_id"`
	MedicineID   uuid.UUID `gorm:"type:uuid;not null;index" json:"medicine_id"`
	Medicine     Medicine  `gorm:"foreignKey:MedicineID" json:"medicine"`
	Unit         string    `gorm:"type:varchar(20);not null" json:"unit"`
	RequestedQty int       `gorm:"type:int;not null" json:"requested_qty"`
	ApprovedQty  int       `gorm:"type:int;not null;default:0" json:"approved_qty"`
	DistributedQty int     `gorm:"type:int;not null;default:0" json:"distributed_qty"`
	Note         string    `gorm:"type:text" json:"note"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ApprovalDecision values recorded on an ApprovalRecord
const (
	DecisionApproved          = "approved"
	DecisionPartiallyApproved = "partially_approved"
	DecisionRejected          = "rejected"
)

// ApprovalRecord is the reviewer's decision. Created exactly once per
// submission and immutable afterwards; per-item approved quantities land on
// the SubmissionItem rows in the same transaction.
type ApprovalRecord struct {
	ID              uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"submission_id"`
	ApprovedBy      uuid.UUID `gorm:"type:uuid;not null" json:"approved_by"`
	Approver        *User     `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	Decision        string    `gorm:"type:varchar(30);not null" json:"decision"`
	NoteToSubmitter string    `gorm:"type:text" json:"note_to_submitter"`
	NoteToWarehouse string    `gorm:"type:text" json:"note_to_warehouse"`
	CreatedAt       time.Time `json:"created_at"`
}
