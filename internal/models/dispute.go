package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

type DisputeResolutionType string

const (
	DisputeResolutionRefund  DisputeResolutionType = "REFUND"
	DisputeResolutionRelease DisputeResolutionType = "RELEASE"
	DisputeResolutionSplit   DisputeResolutionType = "SPLIT"
)

func (r DisputeResolutionType) IsValid() bool {
	switch r {
	case DisputeResolutionRefund, DisputeResolutionRelease, DisputeResolutionSplit:
		return true
	}
	return false
}

type Dispute struct {
	ID              uuid.UUID              `db:"id" json:"id"`
	JobID           uuid.UUID              `db:"job_id" json:"job_id"`
	TransactionID   uuid.UUID              `db:"transaction_id" json:"transaction_id"`
	RaisedBy        uuid.UUID              `db:"raised_by" json:"raised_by"`
	Reason          string                 `db:"reason" json:"reason"`
	Status          string                 `db:"status" json:"status"`
	Resolution      *DisputeResolutionType `db:"resolution" json:"resolution,omitempty"`
	SplitPercentage *float64               `db:"split_percentage" json:"split_percentage,omitempty"`
	ResolvedBy      *uuid.UUID             `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
	ResolvedAt      *time.Time             `db:"resolved_at" json:"resolved_at,omitempty"`
}
