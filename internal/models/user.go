package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id" bson:"_id"`
	Name      string    `gorm:"not null" json:"name" bson:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	Password  string    `gorm:"not null" json:"-" bson:"password"`
	Role      Role      `gorm:"type:varchar(16);not null;default:user" json:"role" bson:"role"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Author is the public projection of a user embedded in posts and comments.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Author() Author {
	return Author{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Actor is the identity performing a request.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}
