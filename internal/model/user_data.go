package model

// ContentUserData persists opaque resume state for H5P content, keyed by
// attempt + dataType + subContentId.
// swagger:model
type ContentUserData struct {
	BaseModel
	AttemptID    uint   `gorm:"index:idx_attempt_data,unique" json:"attemptId"`
	DataType     string `gorm:"size:255;index:idx_attempt_data,unique" json:"dataType"`
	SubContentID int    `gorm:"default:0;index:idx_attempt_data,unique" json:"subContentId"`
	Value        string `gorm:"type:text" json:"value"`
}

func (ContentUserData) TableName() string {
	return "content_user_data"
}
