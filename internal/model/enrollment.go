package model

import "time"

// Enrollment links a user to a course. CompletedAt is monotonic: it is set
// once by a conditional update and never cleared by later activity.
// swagger:model
type Enrollment struct {
	BaseModel
	UserID      uint       `gorm:"index:idx_user_course,unique" json:"userId"`
	CourseID    uint       `gorm:"index:idx_user_course,unique" json:"courseId"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
