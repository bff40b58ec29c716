package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
)

// Job - единица работы между заказчиком (giver) и исполнителем (installer).
type Job struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	GiverID     uuid.UUID  `db:"giver_id" json:"giver_id"`
	InstallerID *uuid.UUID `db:"installer_id" json:"installer_id,omitempty"`
	BidAmount   int64      `db:"bid_amount" json:"bid_amount"`
	Tip         int64      `db:"tip" json:"tip"`
	// StartAt - запланированное начало работ.
	StartAt            *time.Time            `db:"start_at" json:"start_at,omitempty"`
	WorkStartedAt      *time.Time            `db:"work_started_at" json:"work_started_at,omitempty"`
	Status             valueobject.JobStatus `db:"status" json:"status"`
	CancellationReason *CancellationReason   `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

func (j *Job) IsGiver(userID uuid.UUID) bool {
	return j.GiverID == userID
}

func (j *Job) IsInstaller(userID uuid.UUID) bool {
	return j.InstallerID != nil && *j.InstallerID == userID
}

// IsParticipant - giver или назначенный installer.
func (j *Job) IsParticipant(userID uuid.UUID) bool {
	return j.IsGiver(userID) || j.IsInstaller(userID)
}

func (j *Job) WorkStarted() bool {
	return j.WorkStartedAt != nil
}

// JobTransition - смена статуса заказа, применяемая вместе с транзакцией.
type JobTransition struct {
	JobID  uuid.UUID
	From   valueobject.JobStatus
	To     valueobject.JobStatus
	Reason *CancellationReason
}
