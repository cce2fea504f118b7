package users

import (
	"github.com/kbukum/usersvc/database"
)

// User is a login account.
type User struct {
	database.Model
	Email          string `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	FirstName      string `gorm:"size:255;not null" json:"first_name"`
	LastName       string `gorm:"size:255;not null" json:"last_name"`
	HashedPassword string `gorm:"not null" json:"-"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
	IsSuperuser    bool   `gorm:"not null" json:"is_superuser"`
}

// TableName implements gorm's Tabler.
func (User) TableName() string { return "users" }

// Role is the permission subject carried in access tokens.
func (u *User) Role() string {
	if u.IsSuperuser {
		return RoleAdmin
	}
	return RoleUser
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// UserCreate is the admin create payload.
type UserCreate struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsActive    *bool  `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Email       *string `json:"email" binding:"omitempty,email"`
	Password    *string `json:"password"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}
