package models

import "time"

// OrganizationOwnership links a user to an organization with a role.
// At most one row exists per (organization, user) pair; IsActive is the soft-delete flag.
type OrganizationOwnership struct {
	OrganizationID string    `gorm:"type:varchar(36);primarykey" json:"organization_id"`
	UserID         string    `gorm:"type:varchar(36);primarykey;index" json:"user_id"`
	Role           Role      `gorm:"type:varchar(20);not null" json:"role"`
	AssignedAt     time.Time `gorm:"not null" json:"assigned_at"`
	AssignedBy     *string   `gorm:"type:varchar(36);index" json:"assigned_by"`
	IsActive       bool      `gorm:"not null;index" json:"is_active"`

	// Relations
	Organization   *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE" json:"organization,omitempty"`
	User           *User         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	AssignedByUser *User         `gorm:"foreignKey:AssignedBy;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName sets the database table name.
func (OrganizationOwnership) TableName() string { return "organization_ownerships" }
