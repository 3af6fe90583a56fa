package types

import (
	"encoding/json"
	"time"
)

// AssignmentCategory groups the teachers of a grade
type AssignmentCategory string

const (
	CategoryCore         AssignmentCategory = "core"
	CategoryProfessional AssignmentCategory = "professional"
)

// ReportStatus is the workflow state of a student report
type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusCompleted ReportStatus = "completed"
	StatusReviewed  ReportStatus = "reviewed"
)

// Attitude rates a student's attitude towards learning in one subject
type Attitude string

const (
	AttitudeExcellent        Attitude = "excellent"
	AttitudeGood             Attitude = "good"
	AttitudeSatisfactory     Attitude = "satisfactory"
	AttitudeNeedsImprovement Attitude = "needs_improvement"
)

// SignatureRole identifies who signs a report
type SignatureRole string

const (
	RoleClassroomTeacher SignatureRole = "classroom_teacher"
	RoleHeadOfSchool     SignatureRole = "head_of_school"
)

// DocumentType classifies a student attachment
type DocumentType string

const (
	DocumentGeneral DocumentType = "general"
	DocumentReport  DocumentType = "report"
)

// Rating bounds
const (
	MaxStars       = 5
	MaxExamGrade   = 3
	MaxColorIndex  = 7
	MaxUploadBytes = 200 * 1024
)

// SchoolYear scopes templates, students and reports
type SchoolYear struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	StartYear int    `json:"start_year" validate:"required,min=1900,max=9999"`
	EndYear   int    `json:"end_year" validate:"required,gtefield=StartYear,max=9999"`
	IsActive  bool   `json:"is_active"`
}

// TeacherAssignment is a subject taught in a grade
type TeacherAssignment struct {
	ID       string             `json:"id"`
	Subject  string             `json:"subject" validate:"required"`
	Teacher  string             `json:"teacher" validate:"required"`
	Category AssignmentCategory `json:"category" validate:"required,oneof=core professional"`
}

// Grade is a global grade level, reused across school years
type Grade struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name" validate:"required"`
	Description        string              `json:"description,omitempty"`
	ColorIndex         int                 `json:"color_index" validate:"min=0,max=7"`
	Order              int                 `json:"order" validate:"min=0"`
	ClassroomTeacher   string              `json:"classroom_teacher,omitempty"`
	TeacherAssignments []TeacherAssignment `json:"teacher_assignments,omitempty" validate:"dive"`
}

// AssessmentPoint is one ratable criterion
type AssessmentPoint struct {
	ID          string `json:"id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	MaxStars    int    `json:"max_stars" validate:"min=1,max=5"`
	Order       int    `json:"order"`
}

// UnmarshalJSON accepts the older "label" key as an alias of "name".
func (p *AssessmentPoint) UnmarshalJSON(data []byte) error {
	type plain AssessmentPoint
	var aux struct {
		plain
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = AssessmentPoint(aux.plain)
	if p.Name == "" {
		p.Name = aux.Label
	}
	return nil
}

// Subject groups related assessment points
type Subject struct {
	ID               string            `json:"id"`
	Name             string            `json:"name" validate:"required"`
	Description      string            `json:"description,omitempty"`
	AssessmentPoints []AssessmentPoint `json:"assessment_points" validate:"dive"`
}

// AssessmentTemplate is a rubric bound to one grade and one school year.
// Either Subjects (rich shape) or Points (flat shape) is populated.
type AssessmentTemplate struct {
	ID           string            `json:"id"`
	GradeID      string            `json:"grade_id" validate:"required"`
	SchoolYearID string            `json:"school_year_id" validate:"required"`
	Name         string            `json:"name" validate:"required"`
	Description  string            `json:"description,omitempty"`
	Subjects     []Subject         `json:"subjects,omitempty" validate:"dive"`
	Points       []AssessmentPoint `json:"points,omitempty" validate:"dive"`
	IntroText    string            `json:"intro_text,omitempty"`
	StaticTexts  map[string]string `json:"static_texts,omitempty"`
	IsArchived   bool              `json:"is_archived,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Student is one student in one school year
type Student struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	NameUsed     string `json:"name_used,omitempty"`
	DateOfBirth  string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GradeID      string `json:"grade_id" validate:"required"`
	SchoolYearID string `json:"school_year_id" validate:"required"`
	AvatarURL    string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// ReportEntry is the rating of one assessment point in a report.
// Stars == 0 means unset.
type ReportEntry struct {
	AssessmentPointID string `json:"assessment_point_id" validate:"required"`
	SubjectID         string `json:"subject_id"`
	Stars             int    `json:"stars" validate:"min=0,max=5"`
	IsNA              bool   `json:"is_na,omitempty"`
	TeacherNotes      string `json:"teacher_notes,omitempty"`
	AIRewrittenText   string `json:"ai_rewritten_text,omitempty"`
}

// SubjectComment is the per-subject comment block of a report
type SubjectComment struct {
	SubjectID               string   `json:"subject_id" validate:"required"`
	TeacherComment          string   `json:"teacher_comment,omitempty"`
	AIRewrittenComment      string   `json:"ai_rewritten_comment,omitempty"`
	AttitudeTowardsLearning Attitude `json:"attitude_towards_learning,omitempty" validate:"omitempty,oneof=excellent good satisfactory needs_improvement"`
}

// ExamResult uses a 0-3 star scale, distinct from ReportEntry
type ExamResult struct {
	ID      string `json:"id"`
	Term    string `json:"term" validate:"required"`
	Date    string `json:"date" validate:"required,monthyear"`
	Title   string `json:"title" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Grade   int    `json:"grade" validate:"min=0,max=3"`
	IsNA    bool   `json:"is_na,omitempty"`
}

// ReportReflection holds parent and student reflections. Each timestamp is
// stamped when its text is saved.
type ReportReflection struct {
	ParentReflection  string     `json:"parent_reflection,omitempty"`
	ParentSignedAt    *time.Time `json:"parent_signed_at,omitempty"`
	StudentReflection string     `json:"student_reflection,omitempty"`
	StudentSignedAt   *time.Time `json:"student_signed_at,omitempty"`
}

// Signature of one role
type Signature struct {
	Name     string    `json:"name"`
	SignedAt time.Time `json:"signed_at"`
}

// ReportSignature holds the per-role signatures of a report
type ReportSignature struct {
	ClassroomTeacher *Signature `json:"classroom_teacher,omitempty"`
	HeadOfSchool     *Signature `json:"head_of_school,omitempty"`
}

// StudentReport is a filled-out template for one student and term
type StudentReport struct {
	ID                   string            `json:"id"`
	StudentID            string            `json:"student_id" validate:"required"`
	AssessmentTemplateID string            `json:"assessment_template_id" validate:"required"`
	SchoolYearID         string            `json:"school_year_id" validate:"required"`
	Term                 string            `json:"term" validate:"required"`
	ReportTitle          string            `json:"report_title,omitempty"`
	PeriodStart          string            `json:"period_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd            string            `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Entries              []ReportEntry     `json:"entries" validate:"dive"`
	SubjectComments      []SubjectComment  `json:"subject_comments,omitempty" validate:"dive"`
	GeneralComment       string            `json:"general_comment,omitempty"`
	Status               ReportStatus      `json:"status" validate:"required,oneof=draft completed reviewed"`
	ShareToken           string            `json:"share_token,omitempty"`
	SharedAt             *time.Time        `json:"shared_at,omitempty"`
	ExamResults          []ExamResult      `json:"exam_results,omitempty" validate:"dive"`
	Reflections          *ReportReflection `json:"reflections,omitempty"`
	Signatures           *ReportSignature  `json:"signatures,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// AppSettings is the process-wide settings singleton
type AppSettings struct {
	SchoolName          string   `json:"school_name"`
	MissionStatement    string   `json:"mission_statement"`
	Statement           string   `json:"statement"`
	Vision              string   `json:"vision"`
	Values              []string `json:"values"`
	GradingKey          string   `json:"grading_key"`
	CompanyWritingStyle string   `json:"company_writing_style"`
}

const defaultWritingStyle = "Warm, professional and encouraging. Refer to the student by first name " +
	"and keep each comment to two or three sentences."

// DefaultSettings returns the settings created at first run
func DefaultSettings() AppSettings {
	return AppSettings{
		SchoolName:          "My School",
		Values:              []string{},
		GradingKey:          "1 star: beginning, 3 stars: secure, 5 stars: mastery",
		CompanyWritingStyle: defaultWritingStyle,
	}
}

// StudentDocument is a file attached to a student, optionally to one report
type StudentDocument struct {
	ID         string       `json:"id"`
	StudentID  string       `json:"student_id" validate:"required"`
	Type       DocumentType `json:"type" validate:"required,oneof=general report"`
	ReportID   string       `json:"report_id,omitempty" validate:"required_if=Type report"`
	Label      string       `json:"label" validate:"required"`
	Comment    string       `json:"comment,omitempty"`
	FileName   string       `json:"file_name" validate:"required"`
	FileType   string       `json:"file_type"`
	FileData   string       `json:"file_data" validate:"required,base64"`
	UploadedAt time.Time    `json:"uploaded_at"`
}

// State is the whole store content, persisted as one snapshot
type State struct {
	SchoolYears        []SchoolYear         `json:"school_years"`
	ActiveSchoolYearID string               `json:"active_school_year_id"`
	Grades             []Grade              `json:"grades"`
	Templates          []AssessmentTemplate `json:"assessment_templates"`
	Students           []Student            `json:"students"`
	Reports            []StudentReport      `json:"student_reports"`
	Documents          []StudentDocument    `json:"student_documents"`
	Settings           AppSettings          `json:"app_settings"`
}

// NewState creates an empty state with default settings
func NewState() *State {
	return &State{
		SchoolYears: []SchoolYear{},
		Grades:      []Grade{},
		Templates:   []AssessmentTemplate{},
		Students:    []Student{},
		Reports:     []StudentReport{},
		Documents:   []StudentDocument{},
		Settings:    DefaultSettings(),
	}
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}
