package state

import (
	"slices"
	"time"

	"github.com/STARREPORTS/internal/types"
)

func reportIndex(s *types.State, id string) int {
	return indexOf(s.Reports, func(r types.StudentReport) bool { return r.ID == id })
}

// updateReport copies the report at id, applies fn and refreshes updated_at.
// fn returns false to abandon the change.
func updateReport(s *types.State, id string, now time.Time, fn func(r *types.StudentReport) bool) (*types.State, bool) {
	return editReport(s, id, func(r *types.StudentReport) bool {
		if !fn(r) {
			return false
		}
		r.UpdatedAt = touch(r.UpdatedAt, now)
		return true
	})
}

// editReport is updateReport without the updated_at refresh, for share
// metadata that is not report content.
func editReport(s *types.State, id string, fn func(r *types.StudentReport) bool) (*types.State, bool) {
	i := reportIndex(s, id)
	if i < 0 {
		return s, false
	}
	r := s.Reports[i]
	if !fn(&r) {
		return s, false
	}
	next := with(s)
	next.Reports = replaceAt(s.Reports, i, func(dst *types.StudentReport) { *dst = r })
	return next, true
}

func AddReport(s *types.State, r types.StudentReport) *types.State {
	next := with(s)
	next.Reports = appendTo(s.Reports, r)
	return next
}

// UpdateReport merges p into the report and always refreshes updated_at.
func UpdateReport(s *types.State, id string, p types.StudentReportPatch, now time.Time) (*types.State, bool) {
	return updateReport(s, id, now, func(r *types.StudentReport) bool {
		set(&r.StudentID, p.StudentID)
		set(&r.AssessmentTemplateID, p.AssessmentTemplateID)
		set(&r.SchoolYearID, p.SchoolYearID)
		set(&r.Term, p.Term)
		set(&r.ReportTitle, p.ReportTitle)
		set(&r.PeriodStart, p.PeriodStart)
		set(&r.PeriodEnd, p.PeriodEnd)
		setSlice(&r.Entries, p.Entries)
		setSlice(&r.SubjectComments, p.SubjectComments)
		set(&r.GeneralComment, p.GeneralComment)
		set(&r.Status, p.Status)
		setSlice(&r.ExamResults, p.ExamResults)
		return true
	})
}

func DeleteReport(s *types.State, id string) (*types.State, bool) {
	i := reportIndex(s, id)
	if i < 0 {
		return s, false
	}
	next := with(s)
	next.Reports = removeAt(s.Reports, i)
	return next, true
}

// Exam results

func AddExamResult(s *types.State, reportID string, e types.ExamResult, now time.Time) (*types.State, bool) {
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		r.ExamResults = appendTo(r.ExamResults, e)
		return true
	})
}

func UpdateExamResult(s *types.State, reportID, examID string, p types.ExamResultPatch, now time.Time) (*types.State, bool) {
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		i := indexOf(r.ExamResults, func(e types.ExamResult) bool { return e.ID == examID })
		if i < 0 {
			return false
		}
		r.ExamResults = replaceAt(r.ExamResults, i, func(e *types.ExamResult) {
			set(&e.Term, p.Term)
			set(&e.Date, p.Date)
			set(&e.Title, p.Title)
			set(&e.Subject, p.Subject)
			set(&e.Grade, p.Grade)
			set(&e.IsNA, p.IsNA)
		})
		return true
	})
}

func DeleteExamResult(s *types.State, reportID, examID string, now time.Time) (*types.State, bool) {
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		i := indexOf(r.ExamResults, func(e types.ExamResult) bool { return e.ID == examID })
		if i < 0 {
			return false
		}
		r.ExamResults = removeAt(r.ExamResults, i)
		return true
	})
}

// UpdateReportReflection merges p into the report's reflections, creating
// them when absent. Saving a text stamps its timestamp with now; a patch
// with no text leaves the report untouched.
func UpdateReportReflection(s *types.State, reportID string, p types.ReflectionPatch, now time.Time) (*types.State, bool) {
	if p.ParentReflection == nil && p.StudentReflection == nil {
		return s, reportIndex(s, reportID) >= 0
	}
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		var refl types.ReportReflection
		if r.Reflections != nil {
			refl = *r.Reflections
		}
		stamp := now.UTC()
		if p.ParentReflection != nil {
			refl.ParentReflection = *p.ParentReflection
			refl.ParentSignedAt = &stamp
		}
		if p.StudentReflection != nil {
			refl.StudentReflection = *p.StudentReflection
			refl.StudentSignedAt = &stamp
		}
		r.Reflections = &refl
		return true
	})
}

// SignReport records name as the signature of role, overwriting any prior
// signature for that role. Unknown roles are ignored.
func SignReport(s *types.State, reportID string, role types.SignatureRole, name string, now time.Time) (*types.State, bool) {
	if role != types.RoleClassroomTeacher && role != types.RoleHeadOfSchool {
		return s, false
	}
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		var sigs types.ReportSignature
		if r.Signatures != nil {
			sigs = *r.Signatures
		}
		sig := &types.Signature{Name: name, SignedAt: now.UTC()}
		switch role {
		case types.RoleClassroomTeacher:
			sigs.ClassroomTeacher = sig
		case types.RoleHeadOfSchool:
			sigs.HeadOfSchool = sig
		}
		r.Signatures = &sigs
		return true
	})
}

// UpdateReportEntry upserts the entry rating pointID.
func UpdateReportEntry(s *types.State, reportID, pointID string, p types.ReportEntryPatch, now time.Time) (*types.State, bool) {
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		i := indexOf(r.Entries, func(e types.ReportEntry) bool { return e.AssessmentPointID == pointID })
		if i < 0 {
			r.Entries = appendTo(r.Entries, types.ReportEntry{AssessmentPointID: pointID})
			i = len(r.Entries) - 1
		} else {
			r.Entries = slices.Clone(r.Entries)
		}
		e := &r.Entries[i]
		set(&e.SubjectID, p.SubjectID)
		set(&e.Stars, p.Stars)
		set(&e.IsNA, p.IsNA)
		set(&e.TeacherNotes, p.TeacherNotes)
		set(&e.AIRewrittenText, p.AIRewrittenText)
		return true
	})
}

// UpdateSubjectComment upserts the comment block of subjectID.
func UpdateSubjectComment(s *types.State, reportID, subjectID string, p types.SubjectCommentPatch, now time.Time) (*types.State, bool) {
	return updateReport(s, reportID, now, func(r *types.StudentReport) bool {
		i := indexOf(r.SubjectComments, func(c types.SubjectComment) bool { return c.SubjectID == subjectID })
		if i < 0 {
			r.SubjectComments = appendTo(r.SubjectComments, types.SubjectComment{SubjectID: subjectID})
			i = len(r.SubjectComments) - 1
		} else {
			r.SubjectComments = slices.Clone(r.SubjectComments)
		}
		c := &r.SubjectComments[i]
		set(&c.TeacherComment, p.TeacherComment)
		set(&c.AIRewrittenComment, p.AIRewrittenComment)
		set(&c.AttitudeTowardsLearning, p.AttitudeTowardsLearning)
		return true
	})
}

// AssignShareToken gives the report a share token. A report that is already
// shared keeps its token and shared_at; otherwise token is stored and
// shared_at stamped. The token in effect is returned.
func AssignShareToken(s *types.State, reportID, token string, now time.Time) (*types.State, string, bool) {
	i := reportIndex(s, reportID)
	if i < 0 {
		return s, "", false
	}
	if existing := s.Reports[i].ShareToken; existing != "" {
		return s, existing, true
	}
	next, ok := editReport(s, reportID, func(r *types.StudentReport) bool {
		stamp := now.UTC()
		r.ShareToken = token
		r.SharedAt = &stamp
		return true
	})
	return next, token, ok
}

// RevokeShareToken clears the report's share token.
func RevokeShareToken(s *types.State, reportID string) (*types.State, bool) {
	return editReport(s, reportID, func(r *types.StudentReport) bool {
		if r.ShareToken == "" {
			return false
		}
		r.ShareToken = ""
		r.SharedAt = nil
		return true
	})
}
