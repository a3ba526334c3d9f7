package checkpoint

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"revcore/internal/errs"
)

// Index is a rebuildable modernc.org/sqlite lookup over checkpoint
// files (session_id, checkpoint_number, path, timestamp): the JSON
// documents on disk remain authoritative, this index only avoids a
// directory scan on every "latest for session" / "list last K" query.
// Construction follows the familiar local-store shape: sql.Open with
// PRAGMA busy_timeout/WAL, CREATE TABLE IF NOT EXISTS, parameterized
// Exec/Query/Scan.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if absent) the sqlite index file at path.
func OpenIndex(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.KindInvariant, err, "failed to create checkpoint index directory", false)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to open checkpoint index", false)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to set checkpoint index busy_timeout", false)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to set checkpoint index journal_mode", false)
	}

	idx := &Index{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) createSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS checkpoints (
		session_id        TEXT NOT NULL,
		checkpoint_number INTEGER NOT NULL,
		path              TEXT NOT NULL,
		timestamp         TEXT NOT NULL,
		PRIMARY KEY (session_id, checkpoint_number)
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoints_session_ts
		ON checkpoints (session_id, timestamp DESC);
	`
	if _, err := idx.db.Exec(schema); err != nil {
		return errs.Wrap(errs.KindInvariant, err, "failed to create checkpoint index schema", false)
	}
	return nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Record upserts one checkpoint's index row, called right after Store.Save.
func (idx *Index) Record(doc *Document, path string) error {
	_, err := idx.db.Exec(
		`INSERT INTO checkpoints (session_id, checkpoint_number, path, timestamp)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, checkpoint_number) DO UPDATE SET path = excluded.path, timestamp = excluded.timestamp`,
		doc.SessionID, doc.CheckpointNumber, path, doc.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errs.Wrap(errs.KindInvariant, err, "failed to record checkpoint index entry", false)
	}
	return nil
}

// LatestPath returns the path of the most recent checkpoint recorded
// for sessionID, or "" if the index has no entries for it (a caller
// should fall back to Store.LatestPath's directory scan in that case,
// since the index may simply be empty or stale).
func (idx *Index) LatestPath(sessionID string) (string, error) {
	var path string
	err := idx.db.QueryRow(
		`SELECT path FROM checkpoints WHERE session_id = ? ORDER BY checkpoint_number DESC LIMIT 1`,
		sessionID,
	).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errs.Wrap(errs.KindInvariant, err, "failed to query checkpoint index", false)
	}
	return path, nil
}

// ListSession returns up to limit checkpoint paths for sessionID, most
// recent first.
func (idx *Index) ListSession(sessionID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRetention
	}
	rows, err := idx.db.Query(
		`SELECT path FROM checkpoints WHERE session_id = ? ORDER BY checkpoint_number DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvariant, err, "failed to list checkpoint index entries", false)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, errs.Wrap(errs.KindInvariant, err, "failed to scan checkpoint index row", false)
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// Prune deletes index rows for sessionID whose checkpoint_number isn't
// among the retained set, keeping the index in sync with Store.prune's
// file deletions.
func (idx *Index) Prune(sessionID string, keepNumbers []int) error {
	if len(keepNumbers) == 0 {
		_, err := idx.db.Exec(`DELETE FROM checkpoints WHERE session_id = ?`, sessionID)
		if err != nil {
			return errs.Wrap(errs.KindInvariant, err, "failed to prune checkpoint index", false)
		}
		return nil
	}

	keep := make(map[int]bool, len(keepNumbers))
	for _, n := range keepNumbers {
		keep[n] = true
	}
	rows, err := idx.db.Query(`SELECT checkpoint_number FROM checkpoints WHERE session_id = ?`, sessionID)
	if err != nil {
		return errs.Wrap(errs.KindInvariant, err, "failed to read checkpoint index for prune", false)
	}
	var stale []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return errs.Wrap(errs.KindInvariant, err, "failed to scan checkpoint index row", false)
		}
		if !keep[n] {
			stale = append(stale, n)
		}
	}
	rows.Close()

	for _, n := range stale {
		if _, err := idx.db.Exec(`DELETE FROM checkpoints WHERE session_id = ? AND checkpoint_number = ?`, sessionID, n); err != nil {
			return errs.Wrap(errs.KindInvariant, err, "failed to delete stale checkpoint index row", false)
		}
	}
	return nil
}

// Rebuild repopulates the index from the checkpoint directory, used
// when the index file is missing, deleted, or suspected stale; the
// JSON documents are authoritative so this is always safe to run.
func Rebuild(dir string, idx *Index) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.KindInvariant, err, "failed to read checkpoint directory for rebuild", false)
	}

	store := &Store{Dir: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		doc, err := store.Load(path)
		if err != nil {
			continue // skip unreadable/corrupt files rather than aborting the whole rebuild
		}
		if err := idx.Record(doc, path); err != nil {
			return err
		}
	}
	return nil
}
