package nats

import "time"

// Subject constants for change events
const (
	// SubjectAllChanges matches every change event, e.g.
	// "starreports.report.updated"
	SubjectAllChanges = "starreports.>"

	// SubjectPersistenceFailed is published once when snapshots stop saving
	SubjectPersistenceFailed = "starreports.persistence.failed"

	// SubjectStats answers requests with a StatsMessage
	SubjectStats = "starreports.stats"
)

// StatsMessage summarizes the store for operators
type StatsMessage struct {
	SchoolYears        int       `json:"school_years"`
	ActiveSchoolYearID string    `json:"active_school_year_id"`
	Grades             int       `json:"grades"`
	Templates          int       `json:"templates"`
	Students           int       `json:"students"`
	Reports            int       `json:"reports"`
	SharedReports      int       `json:"shared_reports"`
	Documents          int       `json:"documents"`
	Timestamp          time.Time `json:"timestamp"`
}
