package models

import (
	"time"

	"gorm.io/datatypes"
)

// Book is a catalog entry. AvailableCopies and the rating aggregate are
// derived, contended fields: AvailableCopies moves with the loan lifecycle,
// AverageRating/TotalReviews with review mutations. Both are only written
// inside row-scoped transactions. Invariant: 0 <= available <= total.
type Book struct {
	ID              uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string         `gorm:"size:255;not null;index" json:"title"`
	Author          string         `gorm:"size:150;not null;index" json:"author"`
	ISBN            string         `gorm:"column:isbn;size:20;uniqueIndex;not null" json:"isbn"`
	Description     string         `gorm:"type:text" json:"description,omitempty"`
	Category        string         `gorm:"size:100;index" json:"category,omitempty"`
	PublicationYear int            `json:"publication_year,omitempty"`
	TotalCopies     int64          `gorm:"not null;default:1" json:"total_copies"`
	AvailableCopies int64          `gorm:"not null;default:1" json:"available_copies"`
	CoverURL        string         `gorm:"size:512" json:"cover_url,omitempty"`
	Pages           datatypes.JSON `gorm:"type:json" json:"-"`
	AverageRating   float64        `gorm:"type:decimal(4,2);not null;default:0" json:"average_rating"`
	TotalReviews    int64          `gorm:"not null;default:0" json:"total_reviews"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	Loans   []Loan   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews []Review `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Book
func (Book) TableName() string {
	return "books"
}
