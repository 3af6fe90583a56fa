package main

import (
	"path/filepath"
	"testing"

	"github.com/STARREPORTS/internal/types"
)

func TestCollectStats(t *testing.T) {
	st := types.NewState()
	st.ActiveSchoolYearID = "y1"
	st.SchoolYears = []types.SchoolYear{{ID: "y1"}}
	st.Templates = []types.AssessmentTemplate{{ID: "t1"}, {ID: "t2", IsArchived: true}}
	st.Reports = []types.StudentReport{{ID: "r1", ShareToken: "tok"}, {ID: "r2"}}

	s := collectStats(st)
	if s.SchoolYears != 1 || s.ActiveSchoolYearID != "y1" {
		t.Errorf("years = %d active = %q", s.SchoolYears, s.ActiveSchoolYearID)
	}
	if s.Templates != 1 {
		t.Errorf("Templates = %d, archived templates should not count", s.Templates)
	}
	if s.Reports != 2 || s.SharedReports != 1 {
		t.Errorf("Reports = %d SharedReports = %d", s.Reports, s.SharedReports)
	}
}

func TestResolve(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "abs.json")

	tests := []struct {
		in   string
		want string
	}{
		{in: "data/state.json", want: filepath.Join(base, "data/state.json")},
		{in: abs, want: abs},
		{in: "", want: ""},
		{in: ":memory:", want: ":memory:"},
	}
	for _, tt := range tests {
		if got := resolve(base, tt.in); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
