package models

import "time"

// Beach is a destination page. CoverImage mirrors the medium variant URL of the
// current cover image, or the placeholder when the beach has no images.
type Beach struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"not null"`
	Slug        string       `json:"slug" gorm:"uniqueIndex;not null"`
	Description *string      `json:"description,omitempty"`
	CoverImage  string       `json:"cover_image" gorm:"not null"`
	Images      []BeachImage `json:"-" gorm:"foreignKey:BeachID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (Beach) TableName() string {
	return "beaches"
}
