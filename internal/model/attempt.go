package model

import (
	"time"

	"gorm.io/datatypes"
)

type CompletionStatus string

const (
	CompletionNotAttempted CompletionStatus = "not_attempted"
	CompletionIncomplete   CompletionStatus = "incomplete"
	CompletionCompleted    CompletionStatus = "completed"
	CompletionUnknown      CompletionStatus = "unknown"
)

type SuccessStatus string

const (
	SuccessPassed  SuccessStatus = "passed"
	SuccessFailed  SuccessStatus = "failed"
	SuccessUnknown SuccessStatus = "unknown"
)

// SessionState is the SCORM runtime protocol state. It lives on the row so
// any worker can service any call for the attempt.
type SessionState string

const (
	SessionNotInitialized SessionState = "not_initialized"
	SessionRunning        SessionState = "running"
	SessionTerminated     SessionState = "terminated"
)

// Attempt is the per-user, per-package progress record. At most one exists
// per (user, package) pair, enforced by the composite unique index.
// swagger:model
type Attempt struct {
	BaseModel
	UserID    uint `gorm:"index:idx_user_package,unique" json:"userId"`
	PackageID uint `gorm:"index:idx_user_package,unique" json:"packageId"`

	StartedAt    time.Time `json:"startedAt"`
	LastAccessed time.Time `json:"lastAccessed"`

	CompletionStatus CompletionStatus `gorm:"size:20;default:not_attempted" json:"completionStatus"`
	SuccessStatus    SuccessStatus    `gorm:"size:20;default:unknown" json:"successStatus"`

	ScoreRaw    *float64 `json:"scoreRaw,omitempty"`
	ScoreMin    *float64 `json:"scoreMin,omitempty"`
	ScoreMax    *float64 `json:"scoreMax,omitempty"`
	ScoreScaled *float64 `json:"scoreScaled,omitempty"`

	// SCORM session fields.
	SessionState SessionState `gorm:"size:20;default:not_initialized" json:"sessionState"`
	LastError    string       `gorm:"size:10;default:0" json:"-"`
	// PendingData buffers SetValue writes until Commit flushes them.
	PendingData datatypes.JSONMap `json:"-"`

	Location    string `gorm:"size:1000" json:"-"`
	SuspendData string `gorm:"type:text" json:"-"`
	TotalTime   string `gorm:"size:30" json:"-"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Done reports whether this attempt counts as finished for aggregation.
// A failed attempt is still a finished attempt, so a terminal success
// status counts even when completion never reached "completed".
func (a *Attempt) Done() bool {
	return a.CompletionStatus == CompletionCompleted ||
		a.SuccessStatus == SuccessPassed ||
		a.SuccessStatus == SuccessFailed
}
