package models

import "time"

// BeachImageMimeType is the MIME type of every stored variant.
const BeachImageMimeType = "image/webp"

// BeachImage is one optimized photo of a beach. Filename is the storage key of
// the original-size variant; the smaller variants are derived from it.
type BeachImage struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	BeachID          uint       `json:"beach_id" gorm:"index;not null"`
	Filename         string     `json:"filename" gorm:"not null"`
	OriginalFilename string     `json:"original_filename" gorm:"not null"`
	OriginalFormat   string     `json:"original_format"`
	FileSize         int64      `json:"file_size" gorm:"not null"`
	OriginalSize     int64      `json:"original_size" gorm:"not null"`
	MimeType         string     `json:"mime_type" gorm:"not null;default:image/webp"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	Position         int        `json:"position" gorm:"not null;default:0"`
	IsCover          bool       `json:"is_cover" gorm:"not null;default:false"`
	SavingsBytes     int64      `json:"savings_bytes" gorm:"not null;default:0"`
	AltText          *string    `json:"alt_text"`
	TakenAt          *time.Time `json:"taken_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UploadedBy       *uint      `json:"uploaded_by,omitempty"`
}

func (BeachImage) TableName() string {
	return "beach_images"
}
