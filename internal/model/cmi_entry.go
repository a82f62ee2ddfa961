package model

// CMIEntry stores one committed SCORM data model element for an attempt.
// Last write wins; mutated only through Commit.
// swagger:model
type CMIEntry struct {
	BaseModel
	AttemptID uint   `gorm:"index:idx_attempt_key,unique" json:"attemptId"`
	Key       string `gorm:"column:element;size:255;index:idx_attempt_key,unique" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
}

func (CMIEntry) TableName() string {
	return "cmi_entries"
}
