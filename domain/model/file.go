package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("file record not found")

// Status tracks the processing lifecycle of a file record.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFinished   Status = "finished"
	StatusError      Status = "error"
)

// StorageType identifies which backend owns the bytes of a record.
type StorageType string

const (
	StorageLocalDisk StorageType = "local"
	StorageS3        StorageType = "s3"
	StorageMemory    StorageType = "memory"
)

// ACL is the visibility class assigned to a stored object.
type ACL string

const (
	ACLPublicRead        ACL = "public-read"
	ACLAuthenticatedRead ACL = "authenticated-read"
)

// RefItem records that some owning entity depends on a file record.
type RefItem struct {
	OwnerID   ID     `json:"ownerId"`
	OwnerType string `json:"ownerType"`
}

// Thumbnail is one generated preview artifact of a record.
type Thumbnail struct {
	Path         string `json:"path"`
	AbsolutePath string `json:"absolutePath"`
	Size         int64  `json:"size"`
}

// StorageMetadata carries backend-specific extras for a record.
type StorageMetadata struct {
	Bucket   string `json:"bucket,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Region   string `json:"region,omitempty"`
}

// FileRecord is the persisted metadata entity for one media asset.
type FileRecord struct {
	ID   ID     `gorm:"primaryKey;type:uuid" json:"id"`
	Type string `gorm:"index" json:"type"`

	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`

	Server       StorageType `json:"server"`
	Path         string      `json:"path"`
	AbsolutePath string      `json:"absolutePath"`
	ACL          ACL         `json:"acl"`

	Thumbnails []Thumbnail     `gorm:"serializer:json" json:"thumbnails"`
	Metadata   StorageMetadata `gorm:"serializer:json" json:"metadata"`
	RefItems   []RefItem       `gorm:"serializer:json" json:"refItems"`

	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`

	Status Status `gorm:"index" json:"status"`
	Error  string `json:"error,omitempty"`

	CreatedBy ID           `json:"createdBy,omitempty"`
	UpdatedBy ID           `json:"updatedBy,omitempty"`
	CreatedAt time.Time    `gorm:"type:TIMESTAMP with time zone;not null" json:"createdAt"`
	UpdatedAt sql.NullTime `gorm:"type:TIMESTAMP with time zone;null" json:"updatedAt"`
}

func (FileRecord) TableName() string {
	return "file_records"
}

// HasRef reports whether the given owner already references the record.
func (f *FileRecord) HasRef(ref RefItem) bool {
	for _, r := range f.RefItems {
		if r.OwnerID == ref.OwnerID && r.OwnerType == ref.OwnerType {
			return true
		}
	}
	return false
}

// Orphaned reports whether no owner references the record.
func (f *FileRecord) Orphaned() bool {
	return len(f.RefItems) == 0
}

func (f *FileRecord) IsImage() bool {
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	return validTypes[f.MimeType]
}

func (f *FileRecord) IsVideo() bool {
	return len(f.MimeType) > 6 && f.MimeType[:6] == "video/"
}

func (f *FileRecord) IsAudio() bool {
	return len(f.MimeType) > 6 && f.MimeType[:6] == "audio/"
}

// FileDTO is the caller-facing projection of a record.
type FileDTO struct {
	ID         ID          `json:"id"`
	Type       string      `json:"type"`
	Name       string      `json:"name"`
	MimeType   string      `json:"mimeType"`
	Size       int64       `json:"size"`
	Server     StorageType `json:"server"`
	Path       string      `json:"path"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Duration   float64     `json:"duration"`
	Status     Status      `json:"status"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// DTO is the single, total conversion from the persisted entity to its
// caller-facing shape. Every call site goes through here.
func (f *FileRecord) DTO() FileDTO {
	return FileDTO{
		ID:         f.ID,
		Type:       f.Type,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		Server:     f.Server,
		Path:       f.Path,
		Thumbnails: f.Thumbnails,
		Width:      f.Width,
		Height:     f.Height,
		Duration:   f.Duration,
		Status:     f.Status,
		Error:      f.Error,
		CreatedAt:  f.CreatedAt,
	}
}
