package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medicine is a catalog entry for an agro-medicine (pesticide, fungicide...)
type Medicine struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Unit      string         `gorm:"type:varchar(20);not null" json:"unit"` // liter, kg, pack...
	Category  string         `gorm:"type:varchar(100)" json:"category"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// StockBatch is one warehouse receipt of a medicine. CurrentStock only ever
// moves down through a successful distribution confirmation and never below
// zero; a decrement larger than CurrentStock is rejected, not clamped.
type StockBatch struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	MedicineID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_medicine_batch" json:"medicine_id"`
	Medicine     Medicine   `gorm:"foreignKey:MedicineID" json:"medicine"`
	BatchNumber  string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_medicine_batch" json:"batch_number"`
	CurrentStock int        `gorm:"type:int;not null" json:"current_stock"`
	InitialStock int        `gorm:"type:int;not null" json:"initial_stock"`
	MinStock     int        `gorm:"type:int;not null;default:0" json:"min_stock"`
	EntryDate    time.Time  `gorm:"not null" json:"entry_date"`
	ExpiryDate   time.Time  `gorm:"not null;index" json:"expiry_date"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// StockMovement types
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

// StockMovement records every batch-level stock change strictly, with the
// resulting level, so the ledger can be replayed per batch.
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BatchID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"batch_id"`
	MedicineID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"medicine_id"`
	SubmissionID    *uuid.UUID `gorm:"type:uuid;index" json:"submission_id"` // Nullable for intake and manual adjustments
	MovementType    string     `gorm:"type:varchar(10);not null" json:"movement_type"` // IN, OUT
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `json:"created_at"`
}
