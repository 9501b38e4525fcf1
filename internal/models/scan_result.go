package models

import (
	"time"
)

// ScanStatus is the final outcome of one scan attempt
type ScanStatus string

const (
	// ScanPassed indicates the package is safe to publish
	ScanPassed ScanStatus = "passed"

	// ScanBlocked indicates the decision policy fired and publication is refused
	ScanBlocked ScanStatus = "blocked"

	// ScanFailed indicates the pipeline could not produce an assessment
	// (extraction failure or fatal error), never an AI degradation
	ScanFailed ScanStatus = "failed"
)

// RiskLevel summarizes a finding set on a four-point ordinal scale, with
// unknown reserved for failed scans
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// ScanResult is the durable artifact of one scan attempt. It is append-only:
// one record per attempt, keyed by package id and timestamp, and immutable
// once written. Review dashboards and notification senders consume it.
type ScanResult struct {
	ID              uint        `json:"id" gorm:"primaryKey"`
	PackageID       string      `json:"package_id" gorm:"index" validate:"required"`
	Status          ScanStatus  `json:"status"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	Score           int         `json:"score"`
	Findings        FindingList `json:"findings" gorm:"type:text"`
	Recommendations StringArray `json:"recommendations" gorm:"type:text"`
	BlockedReasons  StringArray `json:"blocked_reasons" gorm:"type:text"`
	AIAnalysis      string      `json:"ai_analysis"`
	Warnings        StringArray `json:"warnings" gorm:"type:text"`
	ScannedAt       time.Time   `json:"scanned_at" gorm:"index"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TableName returns the table name for the ScanResult model
func (ScanResult) TableName() string {
	return "scan_results"
}

// SeverityCounts returns a histogram of finding severities
func (r *ScanResult) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
