// Package domain defines the receipt types shared by the service, repository,
// and transport layers. ReceiptRecord and Idempotency are mapped with GORM and
// make up the receipt index; Receipt is the in-memory result of a creation.
package domain

import (
	"fmt"
	"time"
)

// IDPrefix prefixes every receipt identifier.
const IDPrefix = "AGR"

// ReceiptRequest is the transient input of a receipt creation. Only Name and
// Email are required; the remaining fields are free-form.
type ReceiptRequest struct {
	Name  string `json:"name"  example:"Ana Pérez"`
	Email string `json:"email" example:"ana@example.com"`
	Phone string `json:"phone,omitempty" example:"+34 600 000 000"`
	Date  string `json:"date,omitempty"  example:"2025-06-01 10:30"`
	Notes string `json:"notes,omitempty" example:"First visit"`
}

// Receipt is a generated PDF plus the metadata needed to retrieve it.
//
// ID has the form AGR-<unixMillis>-<6 uppercase alphanumerics>. Filename is
// <unixMillis>-<ID>.pdf using the same millisecond timestamp, so a receipt's
// file name never changes after creation.
type Receipt struct {
	ID          string
	CreatedAt   time.Time
	PDF         []byte
	Filename    string
	StoragePath string
	PublicURL   string
	Emailed     bool

	Name  string
	Email string
}

// NewReceiptID builds a receipt id from a creation time and a random suffix.
func NewReceiptID(createdAt time.Time, suffix string) string {
	return fmt.Sprintf("%s-%d-%s", IDPrefix, createdAt.UnixMilli(), suffix)
}

// ReceiptFilename derives the stored file name for a receipt id.
func ReceiptFilename(createdAt time.Time, id string) string {
	return fmt.Sprintf("%d-%s.pdf", createdAt.UnixMilli(), id)
}

// ReceiptRecord is the index row written once a receipt PDF is persisted.
// The PDF itself lives in storage; this row only carries metadata.
type ReceiptRecord struct {
	ID        string    `json:"id"         gorm:"type:varchar(40);primaryKey"`
	Filename  string    `json:"filename"   gorm:"type:varchar(80);not null;uniqueIndex:ux_receipt_filename"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;index:idx_receipt_email"`
	Emailed   bool      `json:"emailed"    gorm:"not null;default:false"`
	SizeBytes int64     `json:"size_bytes" gorm:"not null"`
	URL       string    `json:"url"        gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_receipt_created"`
}

// TableName returns the database table name for ReceiptRecord.
func (ReceiptRecord) TableName() string { return "receipts" }
