package types

// Patch types carry the fields of a partial update. A nil field is left
// untouched by the merge; a non-nil field replaces the stored value.

type SchoolYearPatch struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1"`
	StartYear *int    `json:"start_year,omitempty" validate:"omitempty,min=1900,max=9999"`
	EndYear   *int    `json:"end_year,omitempty" validate:"omitempty,min=1900,max=9999"`
}

type GradePatch struct {
	Name               *string              `json:"name,omitempty" validate:"omitempty,min=1"`
	Description        *string              `json:"description,omitempty"`
	ColorIndex         *int                 `json:"color_index,omitempty" validate:"omitempty,min=0,max=7"`
	Order              *int                 `json:"order,omitempty" validate:"omitempty,min=0"`
	ClassroomTeacher   *string              `json:"classroom_teacher,omitempty"`
	TeacherAssignments *[]TeacherAssignment `json:"teacher_assignments,omitempty" validate:"omitempty,dive"`
}

type AssessmentTemplatePatch struct {
	GradeID      *string            `json:"grade_id,omitempty" validate:"omitempty,min=1"`
	SchoolYearID *string            `json:"school_year_id,omitempty" validate:"omitempty,min=1"`
	Name         *string            `json:"name,omitempty" validate:"omitempty,min=1"`
	Description  *string            `json:"description,omitempty"`
	Subjects     *[]Subject         `json:"subjects,omitempty" validate:"omitempty,dive"`
	Points       *[]AssessmentPoint `json:"points,omitempty" validate:"omitempty,dive"`
	IntroText    *string            `json:"intro_text,omitempty"`
	StaticTexts  *map[string]string `json:"static_texts,omitempty"`
	IsArchived   *bool              `json:"is_archived,omitempty"`
}

type StudentPatch struct {
	FirstName    *string `json:"first_name,omitempty" validate:"omitempty,min=1"`
	LastName     *string `json:"last_name,omitempty" validate:"omitempty,min=1"`
	NameUsed     *string `json:"name_used,omitempty"`
	DateOfBirth  *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	GradeID      *string `json:"grade_id,omitempty" validate:"omitempty,min=1"`
	SchoolYearID *string `json:"school_year_id,omitempty" validate:"omitempty,min=1"`
	AvatarURL    *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

type StudentReportPatch struct {
	StudentID            *string           `json:"student_id,omitempty" validate:"omitempty,min=1"`
	AssessmentTemplateID *string           `json:"assessment_template_id,omitempty" validate:"omitempty,min=1"`
	SchoolYearID         *string           `json:"school_year_id,omitempty" validate:"omitempty,min=1"`
	Term                 *string           `json:"term,omitempty" validate:"omitempty,min=1"`
	ReportTitle          *string           `json:"report_title,omitempty"`
	PeriodStart          *string           `json:"period_start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd            *string           `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Entries              *[]ReportEntry    `json:"entries,omitempty" validate:"omitempty,dive"`
	SubjectComments      *[]SubjectComment `json:"subject_comments,omitempty" validate:"omitempty,dive"`
	GeneralComment       *string           `json:"general_comment,omitempty"`
	Status               *ReportStatus     `json:"status,omitempty" validate:"omitempty,oneof=draft completed reviewed"`
	ExamResults          *[]ExamResult     `json:"exam_results,omitempty" validate:"omitempty,dive"`
}

type ReportEntryPatch struct {
	SubjectID       *string `json:"subject_id,omitempty"`
	Stars           *int    `json:"stars,omitempty" validate:"omitempty,min=0,max=5"`
	IsNA            *bool   `json:"is_na,omitempty"`
	TeacherNotes    *string `json:"teacher_notes,omitempty"`
	AIRewrittenText *string `json:"ai_rewritten_text,omitempty"`
}

type SubjectCommentPatch struct {
	TeacherComment          *string   `json:"teacher_comment,omitempty"`
	AIRewrittenComment      *string   `json:"ai_rewritten_comment,omitempty"`
	AttitudeTowardsLearning *Attitude `json:"attitude_towards_learning,omitempty" validate:"omitempty,oneof=excellent good satisfactory needs_improvement"`
}

type ExamResultPatch struct {
	Term    *string `json:"term,omitempty" validate:"omitempty,min=1"`
	Date    *string `json:"date,omitempty" validate:"omitempty,monthyear"`
	Title   *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Subject *string `json:"subject,omitempty" validate:"omitempty,min=1"`
	Grade   *int    `json:"grade,omitempty" validate:"omitempty,min=0,max=3"`
	IsNA    *bool   `json:"is_na,omitempty"`
}

type ReflectionPatch struct {
	ParentReflection  *string `json:"parent_reflection,omitempty"`
	StudentReflection *string `json:"student_reflection,omitempty"`
}

type AppSettingsPatch struct {
	SchoolName          *string   `json:"school_name,omitempty"`
	MissionStatement    *string   `json:"mission_statement,omitempty"`
	Statement           *string   `json:"statement,omitempty"`
	Vision              *string   `json:"vision,omitempty"`
	Values              *[]string `json:"values,omitempty"`
	GradingKey          *string   `json:"grading_key,omitempty"`
	CompanyWritingStyle *string   `json:"company_writing_style,omitempty"`
}

type StudentDocumentPatch struct {
	Label    *string       `json:"label,omitempty" validate:"omitempty,min=1"`
	Comment  *string       `json:"comment,omitempty"`
	Type     *DocumentType `json:"type,omitempty" validate:"omitempty,oneof=general report"`
	ReportID *string       `json:"report_id,omitempty"`
}
