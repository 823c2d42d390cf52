package model

import "time"

// Role is the access level carried by a user account and its tokens.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	// RoleGuest is never persisted; it stands for unauthenticated callers.
	RoleGuest Role = "guest"
)

// IsValid reports whether r can be stored on a user row.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// ParseRole converts a raw string to a Role, reporting whether it is assignable.
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.IsValid()
}

// User represents an account in the users table.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;size:255;not null"` // Never expose in JSON
	Role         Role      `json:"role" gorm:"size:50;not null;default:'user'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSortColumns lists the columns a user listing may be ordered by.
var UserSortColumns = map[string]struct{}{
	"id":         {},
	"name":       {},
	"email":      {},
	"role":       {},
	"created_at": {},
	"updated_at": {},
}

// DefaultUserSort is the column used when no valid sort column is requested.
const DefaultUserSort = "created_at"
