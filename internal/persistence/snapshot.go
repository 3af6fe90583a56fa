package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/STARREPORTS/internal/types"
)

// SnapshotVersion is the envelope version written by this build
const SnapshotVersion = 1

// ErrUnsupportedVersion is returned for snapshots written by a newer build
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Snapshot is the persisted envelope around the state
type Snapshot struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	State   *types.State `json:"state"`
}

// migration upgrades raw state JSON from one version to the next
type migration func(raw json.RawMessage) (json.RawMessage, error)

// migrations[v] upgrades version v to v+1. Version 0 is the unversioned
// blob that held the bare state.
var migrations = map[int]migration{
	0: func(raw json.RawMessage) (json.RawMessage, error) { return raw, nil },
}

// EncodeSnapshot wraps st in a versioned envelope
func EncodeSnapshot(st *types.State, savedAt time.Time) ([]byte, error) {
	return json.MarshalIndent(Snapshot{
		Version: SnapshotVersion,
		SavedAt: savedAt.UTC(),
		State:   st,
	}, "", "  ")
}

// DecodeSnapshot reads an envelope of any known version, migrating it to
// the current one. It returns the state and the version it was read from.
func DecodeSnapshot(data []byte) (*types.State, int, error) {
	var head struct {
		Version *int            `json:"version"`
		State   json.RawMessage `json:"state"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, 0, fmt.Errorf("decode snapshot: %w", err)
	}

	version := 0
	raw := json.RawMessage(data)
	if head.Version != nil {
		version = *head.Version
		raw = head.State
	}
	if version > SnapshotVersion || version < 0 {
		return nil, version, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	for v := version; v < SnapshotVersion; v++ {
		migrate, ok := migrations[v]
		if !ok {
			return nil, version, fmt.Errorf("%w: no migration from %d", ErrUnsupportedVersion, v)
		}
		var err error
		if raw, err = migrate(raw); err != nil {
			return nil, version, fmt.Errorf("migrate snapshot from version %d: %w", v, err)
		}
	}

	st := types.NewState()
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, st); err != nil {
			return nil, version, fmt.Errorf("decode state: %w", err)
		}
	}
	normalize(st)
	return st, version, nil
}

// normalize fills the gaps older or hand-edited snapshots may have
func normalize(st *types.State) {
	if st.SchoolYears == nil {
		st.SchoolYears = []types.SchoolYear{}
	}
	if st.Grades == nil {
		st.Grades = []types.Grade{}
	}
	if st.Templates == nil {
		st.Templates = []types.AssessmentTemplate{}
	}
	if st.Students == nil {
		st.Students = []types.Student{}
	}
	if st.Reports == nil {
		st.Reports = []types.StudentReport{}
	}
	if st.Documents == nil {
		st.Documents = []types.StudentDocument{}
	}
	for i := range st.Reports {
		if st.Reports[i].Entries == nil {
			st.Reports[i].Entries = []types.ReportEntry{}
		}
	}
	if st.Settings.SchoolName == "" && st.Settings.CompanyWritingStyle == "" {
		st.Settings = types.DefaultSettings()
	}
	if st.Settings.Values == nil {
		st.Settings.Values = []string{}
	}
	if st.ActiveSchoolYearID == "" {
		for _, y := range st.SchoolYears {
			if y.IsActive {
				st.ActiveSchoolYearID = y.ID
				break
			}
		}
	}
}
