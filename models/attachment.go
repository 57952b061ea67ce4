package models

import (
	"time"

	"gorm.io/gorm"
)

// Attachment records the metadata of one uploaded file. The blob itself lives
// in the object store under a key derived from ID and FileName. Rows are
// write-once: created by the upload pipeline and never mutated afterwards.
type Attachment struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	FileName      string    `gorm:"size:512;not null" json:"fileName"`
	FileType      string    `gorm:"size:128;not null" json:"fileType"`
	OwnerID       int64     `gorm:"not null;index" json:"ownerId"`
	LastUpdatedOn time.Time `gorm:"index" json:"lastUpdatedOn"`
}

// BeforeCreate stamps LastUpdatedOn when the pipeline did not.
func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.LastUpdatedOn.IsZero() {
		a.LastUpdatedOn = time.Now()
	}
	return nil
}
