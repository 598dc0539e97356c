package models

import "time"

// User roles. Admins manage the catalog and can act on any loan or review.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User is a library account. The password hash never leaves the server.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicID     string    `gorm:"type:char(36);uniqueIndex;not null" json:"public_id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FullName     string    `gorm:"size:150" json:"full_name"`
	Role         string    `gorm:"size:20;not null;default:member" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`

	Loans   []Loan   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Reviews []Review `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
