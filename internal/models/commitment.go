// Package models defines the domain types for notifsync.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Boolean state is stored as text so the file reads the same regardless of
// which producer wrote it.
const (
	FlagTrue  = "true"
	FlagFalse = "false"

	// DefaultLocation is stored when a commitment has no known location.
	DefaultLocation = "N/A"
)

// Commitment is a calendar-like entry extracted from a notification.
// Field order matches the on-disk layout.
type Commitment struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	DateTime       string  `json:"date_time"`
	Location       string  `json:"location"`
	SourceApp      string  `json:"source_app"`
	NotificationID string  `json:"notification_id"`
	CommitmentType string  `json:"commitment_type"`
	Reminded       string  `json:"reminded"`
	Duration       string  `json:"duration"`
	DatePresent    *string `json:"date_present"`
	Deleted        string  `json:"deleted"`
}

// IsDeleted reports whether the commitment has been soft-deleted.
func (c Commitment) IsDeleted() bool {
	return c.Deleted == FlagTrue
}

// Clone returns a deep copy.
func (c Commitment) Clone() Commitment {
	if c.DatePresent != nil {
		dp := *c.DatePresent
		c.DatePresent = &dp
	}
	return c
}

// Validate checks the already-normalized flag fields.
func (c Commitment) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Reminded, validation.Required, validation.In(FlagTrue, FlagFalse)),
		validation.Field(&c.Deleted, validation.Required, validation.In(FlagTrue, FlagFalse)),
	)
}
