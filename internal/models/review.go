package models

import "time"

// Review is a user's rating and comment for a book. One review per
// (user, book) pair; every mutation recomputes the book's aggregate
// within the same transaction.
type Review struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_user_book_review,unique" json:"user_id"`
	BookID    uint64    `gorm:"not null;index:idx_user_book_review,unique;index" json:"book_id"`
	Rating    int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"size:1000" json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Book Book `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Review
func (Review) TableName() string {
	return "reviews"
}
