// Package checkpoint serializes plan+progress to disk on interrupt or
// budget exhaustion and reloads it on resume. The save/load shape
// follows a saveCampaign/LoadCampaign-style pair: os.MkdirAll the
// target directory, json.MarshalIndent the document, os.WriteFile it,
// and on the reverse path os.ReadFile plus json.Unmarshal into a typed
// struct — no ORM or schema migration layer, since the document itself
// is an externally specified wire format, not an internal cache this
// module owns evolving.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
	"revcore/internal/plan"
)

// Version is the checkpoint document format identifier.
const Version = "1"

// DefaultRetention is the default number of checkpoints a session
// directory keeps, oldest pruned first, by count.
const DefaultRetention = 10

// ResumeInfo is the progress summary carried alongside the plan, so a
// resuming caller doesn't need to recompute status counts itself.
type ResumeInfo struct {
	TasksCompleted      int     `json:"tasks_completed"`
	TasksPending        int     `json:"tasks_pending"`
	TasksFailed         int     `json:"tasks_failed"`
	TasksTotal          int     `json:"tasks_total"`
	NextTaskDescription string  `json:"next_task_description,omitempty"`
	ProgressPercent     float64 `json:"progress_percent"`
}

// Document is one self-describing checkpoint: version, session_id,
// checkpoint_number, timestamp, plan, resume_info.
type Document struct {
	Version          string              `json:"version"`
	SessionID        string              `json:"session_id"`
	CheckpointNumber int                 `json:"checkpoint_number"`
	Timestamp        time.Time           `json:"timestamp"`
	Plan             *plan.ExecutionPlan `json:"plan"`
	ResumeInfo       ResumeInfo          `json:"resume_info"`
}

// BuildResumeInfo computes a ResumeInfo snapshot from p's current task
// statuses, used both when writing a fresh checkpoint and when
// reporting progress to a caller without one.
func BuildResumeInfo(p *plan.ExecutionPlan) ResumeInfo {
	counts := p.StatusCounts()
	total := len(p.Tasks)
	info := ResumeInfo{
		TasksCompleted: counts[plan.StatusCompleted],
		TasksFailed:    counts[plan.StatusFailed],
		TasksTotal:     total,
	}
	for _, t := range p.Tasks {
		if t.Status == plan.StatusPending || t.Status == plan.StatusInProgress || t.Status == plan.StatusStopped {
			info.TasksPending++
		}
		if info.NextTaskDescription == "" && (t.Status == plan.StatusPending || t.Status == plan.StatusStopped) {
			info.NextTaskDescription = t.Description
		}
	}
	if total > 0 {
		info.ProgressPercent = float64(info.TasksCompleted) / float64(total) * 100
	}
	return info
}

// NewDocument builds the Document for p at checkpointNumber.
func NewDocument(sessionID string, checkpointNumber int, p *plan.ExecutionPlan, at time.Time) *Document {
	return &Document{
		Version:          Version,
		SessionID:        sessionID,
		CheckpointNumber: checkpointNumber,
		Timestamp:        at,
		Plan:             p,
		ResumeInfo:       BuildResumeInfo(p),
	}
}

// fileName follows the fixed naming scheme:
// checkpoint_{session_id}_{number:04d}_{timestamp}.json.
func fileName(doc *Document) string {
	ts := doc.Timestamp.UTC().Format("20060102T150405Z")
	return fmt.Sprintf("checkpoint_%s_%04d_%s.json", doc.SessionID, doc.CheckpointNumber, ts)
}

// Store saves and loads checkpoint documents under Dir, default
// ".rev_checkpoints", pruning older checkpoints for a session beyond
// Retention after every Save. Index is optional; when
// set, Save keeps it in sync so callers get fast lookups without
// having to remember to call Record/Prune themselves.
type Store struct {
	Dir       string
	Retention int
	Index     *Index
}

// NewStore constructs a Store with the default retention.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, Retention: DefaultRetention}
}

// Save writes doc to disk and prunes the session's directory down to
// Retention entries, oldest checkpoint_number first.
func (s *Store) Save(doc *Document) (string, error) {
	log := logging.For(logging.CategoryCheckpoint)

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errs.Wrap(errs.KindInvariant, err, "failed to create checkpoint directory", false)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errs.Wrap(errs.KindInvariant, err, "failed to marshal checkpoint document", false)
	}

	path := filepath.Join(s.Dir, fileName(doc))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errs.Wrap(errs.KindInvariant, err, "failed to write checkpoint file", false)
	}
	log.Info("checkpoint saved", zap.String("session_id", doc.SessionID), zap.Int("checkpoint_number", doc.CheckpointNumber), zap.String("path", path))

	if s.Index != nil {
		if err := s.Index.Record(doc, path); err != nil {
			log.Warn("checkpoint index record failed", zap.Error(err))
		}
	}

	kept, err := s.prune(doc.SessionID)
	if err != nil {
		log.Warn("checkpoint prune failed", zap.Error(err))
	} else if s.Index != nil {
		if err := s.Index.Prune(doc.SessionID, kept); err != nil {
			log.Warn("checkpoint index prune failed", zap.Error(err))
		}
	}
	return path, nil
}

// Load reads and parses a single checkpoint document.
func (s *Store) Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to read checkpoint file", false)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to parse checkpoint document", false)
	}
	return &doc, nil
}

// sessionCheckpoints lists every checkpoint file for sessionID under
// Dir, sorted ascending by checkpoint_number (parsed from the filename
// rather than re-reading every document, matching the index's purpose
// as a scan-avoidance optimization, not the only way to get this list).
func (s *Store) sessionCheckpoints(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := "checkpoint_" + sessionID + "_"
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.Dir, e.Name()))
	}
	sort.Strings(paths) // the zero-padded number keeps lexical and numeric order aligned
	return paths, nil
}

// List returns every checkpoint file path for sessionID, oldest first.
func (s *Store) List(sessionID string) ([]string, error) {
	return s.sessionCheckpoints(sessionID)
}

// LatestPath returns the most recent checkpoint file for sessionID, or
// "" if none exist. It consults Index first when set, falling back to
// a directory scan if the index has no entry (e.g. it was just
// created, or rebuilt from an empty directory).
func (s *Store) LatestPath(sessionID string) (string, error) {
	if s.Index != nil {
		if path, err := s.Index.LatestPath(sessionID); err == nil && path != "" {
			return path, nil
		}
	}
	paths, err := s.sessionCheckpoints(sessionID)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", nil
	}
	return paths[len(paths)-1], nil
}

// LoadLatest loads the most recent checkpoint for sessionID.
func (s *Store) LoadLatest(sessionID string) (*Document, error) {
	path, err := s.LatestPath(sessionID)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errs.New(errs.KindInvariant, "no checkpoint found for session "+sessionID, "", false)
	}
	return s.Load(path)
}

// prune removes the oldest checkpoints for sessionID beyond Retention
// and returns the checkpoint_numbers of the files left on disk, for
// the caller to reconcile against the index.
func (s *Store) prune(sessionID string) ([]int, error) {
	retention := s.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	paths, err := s.sessionCheckpoints(sessionID)
	if err != nil {
		return nil, err
	}
	cut := len(paths) - retention
	if cut < 0 {
		cut = 0
	}
	for _, p := range paths[:cut] {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	kept := make([]int, 0, len(paths)-cut)
	for _, p := range paths[cut:] {
		kept = append(kept, checkpointNumberFromPath(p))
	}
	return kept, nil
}

// checkpointNumberFromPath extracts the checkpoint_number segment from
// a checkpoint_{session_id}_{number}_{timestamp}.json file name.
func checkpointNumberFromPath(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return -1
	}
	n, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return -1
	}
	return n
}

// ResetInProgress resets any task left in_progress or stopped back to
// pending: a checkpoint captures a moment mid-execution, and resuming
// it must not leave a task stranded in a state nothing will ever
// advance out of.
func ResetInProgress(p *plan.ExecutionPlan) int {
	reset := 0
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Status == plan.StatusInProgress || t.Status == plan.StatusStopped {
			t.Status = plan.StatusPending
			reset++
		}
	}
	return reset
}
