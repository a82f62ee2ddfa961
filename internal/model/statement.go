package model

import "gorm.io/datatypes"

// StatementRecord is the append-only log of ingested progress statements.
// Rows are never updated or deleted.
// swagger:model
type StatementRecord struct {
	BaseModel
	AttemptID   uint           `gorm:"index" json:"attemptId"`
	Verb        string         `gorm:"size:255" json:"verb"`
	VerbDisplay string         `gorm:"size:255" json:"verbDisplay"`
	Statement   datatypes.JSON `json:"statement"`
}

func (StatementRecord) TableName() string {
	return "statement_records"
}
