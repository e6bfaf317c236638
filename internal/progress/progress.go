// Package progress implements the process-wide, in-memory progress tracker
// for bundle construction tasks, following codefang's in-memory registry
// style (mutex-guarded map, accessor-by-id/by-key methods).
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase enumerates the lifecycle phases a task passes through (spec §4.F).
type Phase string

// Task phases, in the order a successful run passes through them.
const (
	PhaseStarting    Phase = "starting"
	PhaseCloning     Phase = "cloning"
	PhaseDownloading Phase = "downloading"
	PhaseIngesting   Phase = "ingesting"
	PhaseCrawling    Phase = "crawling"
	PhaseIndexing    Phase = "indexing"
	PhaseAnalyzing   Phase = "analyzing"
	PhaseGenerating  Phase = "generating"
	PhaseFinalizing  Phase = "finalizing"
	PhaseComplete    Phase = "complete"
)

// Terminal carries a task's final outcome, set exactly once.
type Terminal struct {
	BundleID string `json:"bundleId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Task is the in-memory record of one bundle-construction task (spec §3).
type Task struct {
	TaskID      string    `json:"taskId"`
	Fingerprint string    `json:"fingerprint"`
	Phase       Phase     `json:"phase"`
	Progress    int       `json:"progress"`
	Total       int       `json:"total,omitempty"`
	Message     string    `json:"message,omitempty"`
	Repos       []string  `json:"repos,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Terminal    *Terminal `json:"terminal,omitempty"`
}

// Tracker is the process-wide, thread-safe task registry.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]*Task)}
}

// StartTask registers a new task in phase "starting" at 0% progress and
// returns its generated task id.
func (t *Tracker) StartTask(fingerprint string, repos []string) string {
	taskID := uuid.NewString()
	now := time.Now().UTC()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks[taskID] = &Task{
		TaskID:      taskID,
		Fingerprint: fingerprint,
		Phase:       PhaseStarting,
		Progress:    0,
		Repos:       repos,
		StartedAt:   now,
		UpdatedAt:   now,
	}

	return taskID
}

// UpdateProgress advances taskID's phase/progress/message. A no-op if
// taskID is unknown (the task may have already completed and been
// garbage-collected by a caller, or never existed).
func (t *Tracker) UpdateProgress(taskID string, phase Phase, progress int, message string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return
	}

	task.Phase = phase
	task.Progress = progress
	task.Message = message

	if total > 0 {
		task.Total = total
	}

	task.UpdatedAt = time.Now().UTC()
}

// CompleteTask marks taskID complete with the resulting bundle id.
func (t *Tracker) CompleteTask(taskID, bundleID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return
	}

	task.Phase = PhaseComplete
	task.Progress = 100
	task.Terminal = &Terminal{BundleID: bundleID}
	task.UpdatedAt = time.Now().UTC()
}

// FailTask marks taskID failed with errMsg.
func (t *Tracker) FailTask(taskID, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return
	}

	task.Terminal = &Terminal{Error: errMsg}
	task.UpdatedAt = time.Now().UTC()
}

// ByID returns a copy of the task with taskID, if present.
func (t *Tracker) ByID(taskID string) (Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	task, ok := t.tasks[taskID]
	if !ok {
		return Task{}, false
	}

	return *task, true
}

// ByFingerprint returns a copy of the most recently started task matching
// fingerprint, if any.
func (t *Tracker) ByFingerprint(fingerprint string) (Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best *Task

	for _, task := range t.tasks {
		if task.Fingerprint != fingerprint {
			continue
		}

		if best == nil || task.StartedAt.After(best.StartedAt) {
			best = task
		}
	}

	if best == nil {
		return Task{}, false
	}

	return *best, true
}

// ListActiveTasks returns copies of all tasks with no terminal outcome yet.
func (t *Tracker) ListActiveTasks() []Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := make([]Task, 0, len(t.tasks))

	for _, task := range t.tasks {
		if task.Terminal == nil {
			active = append(active, *task)
		}
	}

	return active
}
