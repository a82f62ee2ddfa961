package model

// Course is the enrollment-granularity unit supplied by the host platform.
// The runtime only needs its identity and its live lessons.
// swagger:model
type Course struct {
	BaseModel
	Title       string `gorm:"size:255" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Lessons []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
