package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/STARREPORTS/internal/config"
	"github.com/STARREPORTS/internal/events"
	"github.com/STARREPORTS/internal/instance"
	"github.com/STARREPORTS/internal/persistence"
	"github.com/STARREPORTS/internal/types"
)

const usage = `Usage: reportctl -action <action> [flags]
Actions:
  export         write the snapshot to -out (stdout when empty)
  import         replace the snapshot with the file at -in
  stats          count entities in the snapshot
  activate-year  make -id the active school year
  migrate        copy the snapshot to -to-backend/-to-path at the current version
  audit          list change events from the audit log
`

func main() {
	configPath := flag.String("config", "configs/starreports.yaml", "Configuration file")
	action := flag.String("action", "", "Action to perform")
	backendName := flag.String("backend", "", "Storage backend: file or sqlite (overrides config)")
	statePath := flag.String("state", "", "Snapshot path (overrides config)")
	in := flag.String("in", "", "Input file for import")
	out := flag.String("out", "", "Output file for export")
	id := flag.String("id", "", "School year id for activate-year")
	toBackend := flag.String("to-backend", "", "Destination backend for migrate")
	toPath := flag.String("to-path", "", "Destination path for migrate")
	auditPath := flag.String("audit", "", "Audit database (overrides config)")
	entity := flag.String("entity", "", "Filter audit events by entity id")
	eventType := flag.String("type", "", "Filter audit events by type")
	limit := flag.Int("limit", 50, "Maximum audit events to list")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *action == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backendName != "" {
		cfg.Storage.Backend = *backendName
	}
	if *statePath != "" {
		cfg.Storage.Path = *statePath
	}
	if *auditPath != "" {
		cfg.Events.AuditPath = *auditPath
	}

	switch *action {
	case "export":
		err = withOutput(*out, func(w io.Writer) error { return exportSnapshot(cfg.Storage, w) })
	case "import":
		err = withLock(cfg.Storage, func() error { return importSnapshot(cfg.Storage, *in) })
	case "stats":
		err = printStats(cfg.Storage, os.Stdout, *jsonOutput)
	case "activate-year":
		err = withLock(cfg.Storage, func() error { return activateYear(cfg.Storage, *id, os.Stdout) })
	case "migrate":
		err = migrate(cfg.Storage, types.StorageConfig{Backend: *toBackend, Path: *toPath}, os.Stdout)
	case "audit":
		err = listAudit(cfg.Events.AuditPath, events.Query{
			EntityID: *entity,
			Types:    eventTypes(*eventType),
			Limit:    *limit,
		}, os.Stdout, *jsonOutput)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action: %s\n%s", *action, usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", *action, err)
		os.Exit(1)
	}
}

// withLock runs fn while holding the data directory lock, so a running
// server's snapshot is never overwritten
func withLock(cfg types.StorageConfig, fn func() error) error {
	guard := instance.NewManager(filepath.Dir(cfg.Path), 0)
	if err := guard.Acquire(); err != nil {
		return err
	}
	defer guard.Release()
	return fn()
}

func withOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readState loads the snapshot behind cfg, upgrading older versions
func readState(cfg types.StorageConfig) (*types.State, error) {
	backend, err := persistence.OpenBackend(cfg)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	data, err := backend.Read()
	if errors.Is(err, persistence.ErrNoSnapshot) {
		return nil, fmt.Errorf("no snapshot at %s", cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	st, _, err := persistence.DecodeSnapshot(data)
	return st, err
}

// writeState replaces the snapshot behind cfg
func writeState(cfg types.StorageConfig, st *types.State) error {
	backend, err := persistence.OpenBackend(cfg)
	if err != nil {
		return err
	}
	data, err := persistence.EncodeSnapshot(st, time.Now())
	if err != nil {
		backend.Close()
		return err
	}
	if err := backend.Write(data); err != nil {
		backend.Close()
		return err
	}
	return backend.Close()
}

func exportSnapshot(cfg types.StorageConfig, w io.Writer) error {
	st, err := readState(cfg)
	if err != nil {
		return err
	}
	data, err := persistence.EncodeSnapshot(st, time.Now())
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func importSnapshot(cfg types.StorageConfig, path string) error {
	if path == "" {
		return errors.New("-in is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	st, version, err := persistence.DecodeSnapshot(data)
	if err != nil {
		return err
	}
	if err := writeState(cfg, st); err != nil {
		return err
	}
	fmt.Printf("Imported %s (version %d) into %s\n", path, version, cfg.Path)
	return nil
}

// Stats summarizes a snapshot
type Stats struct {
	SchoolYears        int    `json:"school_years"`
	ActiveSchoolYearID string `json:"active_school_year_id"`
	Grades             int    `json:"grades"`
	Templates          int    `json:"templates"`
	Students           int    `json:"students"`
	Reports            int    `json:"reports"`
	SharedReports      int    `json:"shared_reports"`
	Documents          int    `json:"documents"`
}

func countState(st *types.State) Stats {
	s := Stats{
		SchoolYears:        len(st.SchoolYears),
		ActiveSchoolYearID: st.ActiveSchoolYearID,
		Grades:             len(st.Grades),
		Templates:          len(st.Templates),
		Students:           len(st.Students),
		Reports:            len(st.Reports),
		Documents:          len(st.Documents),
	}
	for _, r := range st.Reports {
		if r.ShareToken != "" {
			s.SharedReports++
		}
	}
	return s
}

func printStats(cfg types.StorageConfig, w io.Writer, asJSON bool) error {
	st, err := readState(cfg)
	if err != nil {
		return err
	}
	s := countState(st)
	if asJSON {
		return json.NewEncoder(w).Encode(s)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "School years\t%d\n", s.SchoolYears)
	fmt.Fprintf(tw, "Active year\t%s\n", s.ActiveSchoolYearID)
	fmt.Fprintf(tw, "Grades\t%d\n", s.Grades)
	fmt.Fprintf(tw, "Templates\t%d\n", s.Templates)
	fmt.Fprintf(tw, "Students\t%d\n", s.Students)
	fmt.Fprintf(tw, "Reports\t%d (%d shared)\n", s.Reports, s.SharedReports)
	fmt.Fprintf(tw, "Documents\t%d\n", s.Documents)
	return tw.Flush()
}

// activateYear goes through the store so the single-active invariant is
// kept by the same code the service uses
func activateYear(cfg types.StorageConfig, id string, w io.Writer) error {
	if id == "" {
		return errors.New("-id is required")
	}
	backend, err := persistence.OpenBackend(cfg)
	if err != nil {
		return err
	}
	store := persistence.NewJSONStore(backend, 0)
	if _, err := store.Load(); err != nil {
		backend.Close()
		return err
	}
	if !store.SetActiveSchoolYear(id) {
		store.Close()
		return fmt.Errorf("school year %s not found", id)
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Active school year is now %s\n", id)
	return nil
}

func migrate(from, to types.StorageConfig, w io.Writer) error {
	if to.Path == "" {
		return errors.New("-to-path is required")
	}
	if to.Backend == "" {
		to.Backend = types.BackendFile
	}
	st, err := readState(from)
	if err != nil {
		return err
	}
	if err := writeState(to, st); err != nil {
		return err
	}
	fmt.Fprintf(w, "Copied %s (%s) to %s (%s) at version %d\n",
		from.Path, from.Backend, to.Path, to.Backend, persistence.SnapshotVersion)
	return nil
}

func eventTypes(v string) []events.EventType {
	if v == "" {
		return nil
	}
	var out []events.EventType
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, events.EventType(t))
		}
	}
	return out
}

func listAudit(path string, q events.Query, w io.Writer, asJSON bool) error {
	if path == "" {
		return errors.New("audit log is disabled")
	}
	store, err := events.OpenSQLiteStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(q)
	if err != nil {
		return err
	}
	if asJSON {
		if list == nil {
			list = []*events.Event{}
		}
		return json.NewEncoder(w).Encode(list)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSUBJECT\tENTITY\tOP")
	for _, e := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\n", e.CreatedAt.Format(time.RFC3339), e.Subject(), e.EntityID, e.Payload["op"])
	}
	return tw.Flush()
}
