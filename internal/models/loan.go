package models

import "time"

// Loan states. active -> returned (terminal), active -> overdue -> returned.
const (
	LoanStatusActive   = "active"
	LoanStatusReturned = "returned"
	LoanStatusOverdue  = "overdue"
)

// Loan records a user borrowing one copy of a book for a bounded period.
// ReturnDate is set exactly when Status becomes returned.
type Loan struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint64     `gorm:"not null;index" json:"user_id"`
	BookID     uint64     `gorm:"not null;index" json:"book_id"`
	LoanDate   time.Time  `gorm:"not null" json:"loan_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `json:"return_date"`
	Status     string     `gorm:"size:20;not null;default:active;index" json:"status"`
	HasReview  bool       `gorm:"not null;default:false" json:"has_review"`
	CreatedAt  time.Time  `json:"created_at"`

	User User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Book Book `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Loan
func (Loan) TableName() string {
	return "loans"
}
