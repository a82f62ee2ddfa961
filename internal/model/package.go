package model

import "gorm.io/datatypes"

type PackageKind string

const (
	PackageScorm12   PackageKind = "scorm12"
	PackageScorm2004 PackageKind = "scorm2004"
	PackageH5P       PackageKind = "h5p"
)

func (k PackageKind) IsScorm() bool {
	return k == PackageScorm12 || k == PackageScorm2004
}

// Package describes one uploaded learning package. ExtractedPath is empty
// until extraction succeeds; a failed extraction never leaves a stale value.
// swagger:model
type Package struct {
	BaseModel
	Kind        PackageKind `gorm:"size:20;index" json:"kind"`
	Title       string      `gorm:"size:255" json:"title"`
	Description string      `gorm:"type:text" json:"description"`

	// ArchivePath is the storage path of the original uploaded archive.
	ArchivePath string `gorm:"size:500" json:"-"`
	// ExtractedPath is the unique directory name under the content root.
	ExtractedPath string `gorm:"size:500" json:"extractedPath"`

	// LaunchURL is the SCORM launch resource relative to ExtractedPath.
	LaunchURL string `gorm:"size:500" json:"launchUrl,omitempty"`
	// MainLibrary is the H5P main activity library identifier.
	MainLibrary string `gorm:"size:255" json:"mainLibrary,omitempty"`

	Manifest datatypes.JSON `json:"manifest,omitempty"`

	UploaderID uint `json:"uploaderId"`
}

func (Package) TableName() string {
	return "packages"
}
