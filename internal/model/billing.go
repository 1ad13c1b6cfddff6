package model

import (
	"time"

	"github.com/google/uuid"
)

type FeeType string

const (
	FeeTypeLateCancel FeeType = "late_cancel"
	FeeTypeNoShow     FeeType = "no_show"
)

type FeeChargeStatus string

const (
	FeeChargeStatusPending    FeeChargeStatus = "pending"
	FeeChargeStatusProcessing FeeChargeStatus = "processing"
	FeeChargeStatusProcessed  FeeChargeStatus = "processed"
	FeeChargeStatusFailed     FeeChargeStatus = "failed"
)

// FeeCharge is a queued penalty charge. The state machine enqueues it and
// returns; the billing worker drains the queue against the payment
// collaborator. A charge that exhausts its retries moves to failed and is
// surfaced on the billing warning channel, never back into the appointment.
type FeeCharge struct {
	Base
	AppointmentID uuid.UUID       `db:"appointment_id" json:"appointment_id"`
	FeeType       FeeType         `db:"fee_type" json:"fee_type"`
	Amount        float64         `db:"amount" json:"amount"`
	Status        FeeChargeStatus `db:"status" json:"status"`
	ErrorMessage  *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount    int             `db:"retry_count" json:"retry_count"`
	RetryAt       *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt   *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

type LedgerEntryType string

const (
	LedgerEntryDebit  LedgerEntryType = "debit"
	LedgerEntryCredit LedgerEntryType = "credit"
)

// LedgerEntry is produced by the payment collaborator, not by this service.
// A declined card becomes a debit entry (accounts receivable) rather than a
// blocked appointment.
type LedgerEntry struct {
	ID        uuid.UUID       `json:"id"`
	ClientID  uuid.UUID       `json:"client_id"`
	EntryType LedgerEntryType `json:"entry_type"`
	Amount    float64         `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
