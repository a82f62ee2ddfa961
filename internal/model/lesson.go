package model

type LessonKind string

const (
	// LessonScorm delivers a single SCORM package.
	LessonScorm LessonKind = "scorm"
	// LessonH5P composes one or more H5P activities into one page.
	LessonH5P LessonKind = "h5p"
)

// swagger:model
type Lesson struct {
	BaseModel
	CourseID uint       `gorm:"index" json:"courseId"`
	Title    string     `gorm:"size:255" json:"title"`
	Kind     LessonKind `gorm:"size:20" json:"kind"`
	Position int        `gorm:"default:0" json:"position"`
	Live     bool       `gorm:"default:true" json:"live"`

	// PackageID is set for scorm lessons only; h5p lessons reference their
	// activities through LessonActivity rows.
	PackageID *uint    `json:"packageId,omitempty"`
	Package   *Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`

	Activities []LessonActivity `gorm:"foreignKey:LessonID" json:"activities,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonActivity places an H5P activity package inside a lesson.
// swagger:model
type LessonActivity struct {
	BaseModel
	LessonID  uint    `gorm:"index:idx_lesson_activity,unique" json:"lessonId"`
	PackageID uint    `gorm:"index:idx_lesson_activity,unique" json:"packageId"`
	Position  int     `gorm:"default:0" json:"position"`
	Package   Package `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}

func (LessonActivity) TableName() string {
	return "lesson_activities"
}
