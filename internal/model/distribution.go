package model

import (
	"time"

	"github.com/google/uuid"
)

// Distribution procedure steps, strictly ordered. CompletedStep on the
// record is the highest step whose artifact exists; advancing step N+1 is
// only legal once CompletedStep >= N.
const (
	StepValidation   = 1 // scan items against approved quantities
	StepPhotography  = 2 // at least one hand-over photo
	StepDocument     = 3 // handover document generated and acknowledged printed
	StepUpload       = 4 // counter-signed document stored
	StepConfirmation = 5 // receiver confirmed, quantities reconciled
)

// ScannedItem is one line captured during the validation step.
type ScannedItem struct {
	MedicineCode string `json:"medicine_code"`
	Quantity     int    `json:"quantity"`
}

// ScanResults is the persisted outcome of step 1.
type ScanResults struct {
	ScannedItems []ScannedItem `json:"scanned_items"`
	IsComplete   bool          `json:"is_complete"`
	ScannedAt    time.Time     `json:"scanned_at"`
}

// DistributionRecord carries the state of the five-step hand-over procedure
// for one submission. It is built additively: each step stores its artifact
// even if a later step fails, so the wizard resumes from CompletedStep.
type DistributionRecord struct {
	ID               uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID     uuid.UUID    `gorm:"type:uuid;uniqueIndex;not null" json:"submission_id"`
	DistributedBy    uuid.UUID    `gorm:"type:uuid;not null" json:"distributed_by"`
	Distributor      *User        `gorm:"foreignKey:DistributedBy" json:"distributor,omitempty"`
	CompletedStep    int          `gorm:"type:int;not null;default:0" json:"completed_step"`
	ScanResults      *ScanResults `gorm:"serializer:json;type:jsonb" json:"scan_results"`
	DocumentRef      string       `gorm:"type:varchar(255)" json:"document_ref"`
	PrintedAt        *time.Time   `json:"printed_at"`
	SignedDocRef     string       `gorm:"type:varchar(255)" json:"signed_doc_ref"`
	ReceiverName     string       `gorm:"type:varchar(255)" json:"receiver_name"`
	ReceiverIdentity string       `gorm:"type:varchar(100)" json:"receiver_identity"` // national id / phone
	Notes            string       `gorm:"type:text" json:"notes"`
	Photos           []DistributionPhoto `gorm:"foreignKey:DistributionID" json:"photos"`
	Items            []DistributionItem  `gorm:"foreignKey:DistributionID" json:"items"`
	CompletedAt      *time.Time          `json:"completed_at"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// DistributionPhoto is one piece of photographic hand-over evidence.
type DistributionPhoto struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributionID uuid.UUID `gorm:"type:uuid;not null;index" json:"distribution_id"`
	FileRef        string    `gorm:"type:varchar(255);not null" json:"file_ref"`
	Caption        string    `gorm:"type:varchar(255)" json:"caption"`
	CreatedAt      time.Time `json:"created_at"`
}

// DistributionItem attributes a distributed quantity to the stock batch it
// was taken from. One submission item may span several batches.
type DistributionItem struct {
	ID               uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"distribution_id"`
	SubmissionItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_item_id"`
	BatchID          uuid.UUID `gorm:"type:uuid;not null;index" json:"batch_id"`
	Quantity         int       `gorm:"type:int;not null" json:"quantity"`
	CreatedAt        time.Time `json:"created_at"`
}
