package models

import (
	"time"
)

// Staff roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminUser is an organizer staff account
type AdminUser struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organizationId" json:"organizationId"`
	FirstName      string    `bson:"firstName" json:"firstName"`
	LastName       string    `bson:"lastName" json:"lastName"`
	Email          string    `bson:"email" json:"email"`
	Password       string    `bson:"password" json:"-"` // bcrypt hash
	Role           string    `bson:"role" json:"role"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Actor is the request-scoped identity threaded through staff operations
type Actor struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
}

// CanManage reports whether the actor may act on raffles of orgID.
func (a Actor) CanManage(orgID string) bool {
	if a.UserID == "" {
		return false
	}
	return a.OrganizationID == orgID
}
