package persistence

// Entity kinds reported in a Change
const (
	KindSchoolYear = "school_year"
	KindGrade      = "grade"
	KindTemplate   = "template"
	KindStudent    = "student"
	KindReport     = "report"
	KindDocument   = "document"
	KindSettings   = "settings"
)

// Change actions
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
	ActionActivated = "activated"
	ActionShared    = "shared"
	ActionUnshared  = "unshared"
	ActionSigned    = "signed"
)

// Change describes one applied mutation
type Change struct {
	Kind   string `json:"kind"`
	Action string `json:"action"`
	ID     string `json:"id"`
	// Op names the store operation, e.g. "AddExamResult"
	Op string `json:"op"`
}
