package models

import (
	"sort"
	"time"

	"gorm.io/gorm"
)

// Built-in profile names created by the seeder.
const (
	ProfileAdmin      = "admin"
	ProfileOwner      = "owner"
	ProfileAccountant = "accountant"
	ProfileCashier    = "cashier"
	ProfileViewer     = "viewer"
)

// Profile groups permissions. A user is assigned to one profile and inherits
// all of its permissions.
type Profile struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string         `gorm:"size:500" json:"description,omitempty"`
	// IsSystem profiles come from the seeder and cannot be deleted.
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:profile_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"foreignKey:ProfileID" json:"users,omitempty"`
}

// PermissionCodes returns the sorted "resource:action" codes of the profile.
func (p *Profile) PermissionCodes() []string {
	codes := make([]string, 0, len(p.Permissions))
	for _, perm := range p.Permissions {
		codes = append(codes, perm.Code())
	}
	sort.Strings(codes)
	return codes
}

// Permission is a single action allowed on a resource type, e.g.
// "invoice:issue". Either part may be the "*" wildcard.
type Permission struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	ResourceType string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string         `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string         `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "resource:action" format for matching.
func (p Permission) Code() string {
	return p.ResourceType + ":" + p.Action
}
