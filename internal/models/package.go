package models

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalStatus tracks a package through the review lifecycle
type ApprovalStatus string

// Approval statuses. The scanner only ever requests transitions to
// scanning, passed, blocked or failed; draft is set by the upload workflow.
const (
	ApprovalDraft    ApprovalStatus = "draft"
	ApprovalScanning ApprovalStatus = "scanning"
	ApprovalPassed   ApprovalStatus = "passed"
	ApprovalBlocked  ApprovalStatus = "blocked"
	ApprovalFailed   ApprovalStatus = "failed"
)

// PackageType classifies what kind of marketplace artifact was uploaded
type PackageType string

const (
	PackageTypeModule PackageType = "module"
	PackageTypePlugin PackageType = "plugin"
	PackageTypeTheme  PackageType = "theme"
	PackageTypeWidget PackageType = "widget"
)

// Package represents an uploaded marketplace package. The record is owned by
// the registry; the scanner reads it and requests approval-status
// transitions through the registry store.
type Package struct {
	ID             string         `json:"id" gorm:"primaryKey" validate:"required"`
	Name           string         `json:"name" gorm:"index" validate:"required"`
	Version        string         `json:"version"`
	Type           PackageType    `json:"type"`
	Permissions    StringArray    `json:"permissions" gorm:"type:text"`
	SandboxPolicy  string         `json:"sandbox_policy"`
	ArchivePath    string         `json:"archive_path"`
	TeamID         string         `json:"team_id" gorm:"index"`
	ApprovalStatus ApprovalStatus `json:"approval_status" gorm:"index;default:draft"`
	ReviewNotes    string         `json:"review_notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the table name for the Package model
func (Package) TableName() string {
	return "packages"
}

// Team represents the submitting team as known to the registry
type Team struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Tier        string    `json:"tier" gorm:"default:free"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Team model
func (Team) TableName() string {
	return "teams"
}

// InstalledPackage is a package a team already runs in its tenant. The
// context builder uses these to judge whether patterns in a new upload are
// routine for that team's architecture.
type InstalledPackage struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	TeamID      string      `json:"team_id" gorm:"index"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Type        PackageType `json:"type"`
	Permissions StringArray `json:"permissions" gorm:"type:text"`
	InstalledAt time.Time   `json:"installed_at"`
}

// TableName returns the table name for the InstalledPackage model
func (InstalledPackage) TableName() string {
	return "installed_packages"
}
