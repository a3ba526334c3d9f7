// Package transaction records the filesystem actions a task takes so a
// failed or rejected task can be rolled back. It is grounded on
// internal/core.TransactionManager (2PC over FileEdit/Transaction/
// TransactionStatus) but narrowed to one transaction per task,
// {tx_id, task_id, actions[], status}, with no shadow-validation phase
// — verification of a task's effects is the Verifier's job, not the
// transaction layer's.
package transaction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"revcore/internal/errs"
	"revcore/internal/logging"
)

type contextKey struct{}

// WithTransaction returns a context carrying tx, so a tool's
// ExecuteFunc (which only receives ctx and its arguments) can look up
// the active transaction to record pre-state before mutating a file.
func WithTransaction(ctx context.Context, tx *Transaction) context.Context {
	return context.WithValue(ctx, contextKey{}, tx)
}

// FromContext returns the transaction carried by ctx, or nil if none.
func FromContext(ctx context.Context) *Transaction {
	tx, _ := ctx.Value(contextKey{}).(*Transaction)
	return tx
}

// Status is a transaction's lifecycle state.
type Status string

const (
	StatusOpen       Status = "open"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// ActionKind identifies what kind of filesystem effect an Action had,
// so Rollback knows how to invert it.
type ActionKind string

const (
	ActionWrite  ActionKind = "write"  // file created or overwritten
	ActionDelete ActionKind = "delete" // file removed
	ActionMove   ActionKind = "move"   // file renamed from Path to NewPath
	ActionOther  ActionKind = "other"  // non-filesystem effect (run_cmd, web_fetch, ...)
)

// Action is one recorded effect within a transaction, capturing enough
// pre-state (content and mode) to invert it on rollback.
type Action struct {
	Kind       ActionKind
	Path       string
	NewPath    string // set for ActionMove
	PreExisted bool
	PreContent []byte
	PreMode    os.FileMode
	Reversible bool
	ToolName   string
	Timestamp  time.Time
}

// Transaction is the per-task ledger of actions taken while executing
// one Task.
type Transaction struct {
	TxID    string
	TaskID  string
	Actions []Action
	Status  Status
}

// Manager tracks open transactions and performs rollback. Grounded on
// TransactionManager's mutex-guarded map of active transactions, minus
// the single-active-transaction restriction: the orchestrator's bounded
// parallel dispatcher runs multiple tasks concurrently, each needing
// its own transaction.
type Manager struct {
	mu   sync.Mutex
	txns map[string]*Transaction
}

// NewManager returns an empty transaction manager.
func NewManager() *Manager {
	return &Manager{txns: make(map[string]*Transaction)}
}

// Begin opens a new transaction for the given task.
func (m *Manager) Begin(taskID string) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &Transaction{
		TxID:   fmt.Sprintf("tx_%s_%d", taskID, time.Now().UnixNano()),
		TaskID: taskID,
		Status: StatusOpen,
	}
	m.txns[tx.TxID] = tx
	return tx
}

// Get returns the transaction with the given id, or nil.
func (m *Manager) Get(txID string) *Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txns[txID]
}

// RecordWrite records a file create-or-overwrite, snapshotting the
// prior content (or PreExisted=false if the file was newly created) so
// Rollback can restore or remove it.
func (m *Manager) RecordWrite(tx *Transaction, path, toolName string) error {
	action := Action{Kind: ActionWrite, Path: path, Reversible: true, ToolName: toolName, Timestamp: time.Now()}
	if info, err := os.Stat(path); err == nil {
		content, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrap(errs.KindTool, err, "failed to snapshot pre-write content for rollback", false)
		}
		action.PreExisted = true
		action.PreContent = content
		action.PreMode = info.Mode()
	}
	m.append(tx, action)
	return nil
}

// RecordDelete records a file deletion, snapshotting the content that
// existed beforehand so Rollback can recreate it.
func (m *Manager) RecordDelete(tx *Transaction, path, toolName string) error {
	action := Action{Kind: ActionDelete, Path: path, Reversible: true, ToolName: toolName, Timestamp: time.Now()}
	info, err := os.Stat(path)
	if err == nil {
		content, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrap(errs.KindTool, err, "failed to snapshot pre-delete content for rollback", false)
		}
		action.PreExisted = true
		action.PreContent = content
		action.PreMode = info.Mode()
	}
	m.append(tx, action)
	return nil
}

// RecordMove records a rename from path to newPath.
func (m *Manager) RecordMove(tx *Transaction, path, newPath, toolName string) {
	m.append(tx, Action{
		Kind: ActionMove, Path: path, NewPath: newPath,
		PreExisted: true, Reversible: true, ToolName: toolName, Timestamp: time.Now(),
	})
}

// RecordNonReversible records an effect Rollback cannot undo (running a
// shell command, fetching a URL). It is kept in the ledger for audit
// but Rollback logs a warning instead of attempting inversion.
func (m *Manager) RecordNonReversible(tx *Transaction, toolName, path string) {
	m.append(tx, Action{Kind: ActionOther, Path: path, Reversible: false, ToolName: toolName, Timestamp: time.Now()})
}

func (m *Manager) append(tx *Transaction, a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.Actions = append(tx.Actions, a)
}

// Commit marks the transaction as committed. It only sets the status;
// Rollback does not check it, so a committed transaction can still be
// rolled back.
func (m *Manager) Commit(tx *Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.Status = StatusCommitted
}

// Rollback replays the transaction's pre-state in reverse action
// order. Actions marked non-reversible are skipped with a logged
// warning rather than causing Rollback to fail outright — a
// best-effort rollback that restores everything it can is preferable
// to none.
func (m *Manager) Rollback(tx *Transaction) error {
	m.mu.Lock()
	tx.Status = StatusRolledBack
	actions := append([]Action(nil), tx.Actions...)
	m.mu.Unlock()

	log := logging.For(logging.CategoryTransaction)
	var firstErr error

	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		if !a.Reversible {
			log.Warn("skipping non-reversible action during rollback",
				zap.String("tx_id", tx.TxID), zap.String("tool", a.ToolName), zap.String("path", a.Path))
			continue
		}
		if err := rollbackOne(a); err != nil && firstErr == nil {
			firstErr = errs.Wrap(errs.KindTool, err, fmt.Sprintf("rollback failed for %s", a.Path), false)
			log.Error("rollback action failed",
				zap.String("tx_id", tx.TxID), zap.String("path", a.Path), zap.Error(err))
		}
	}
	return firstErr
}

func rollbackOne(a Action) error {
	switch a.Kind {
	case ActionWrite:
		if a.PreExisted {
			return os.WriteFile(a.Path, a.PreContent, a.PreMode)
		}
		return removeIfExists(a.Path)
	case ActionDelete:
		if !a.PreExisted {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(a.Path, a.PreContent, a.PreMode)
	case ActionMove:
		return os.Rename(a.NewPath, a.Path)
	default:
		return nil
	}
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
