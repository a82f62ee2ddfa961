package model

import "time"

// LessonCompletion marks a lesson as done for a user. Created idempotently
// once every activity in the lesson reaches a terminal state; never removed
// by later regressions.
// swagger:model
type LessonCompletion struct {
	BaseModel
	UserID      uint      `gorm:"index:idx_user_lesson,unique" json:"userId"`
	LessonID    uint      `gorm:"index:idx_user_lesson,unique" json:"lessonId"`
	CompletedAt time.Time `json:"completedAt"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}
