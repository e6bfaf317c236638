package progress_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/preflight/internal/progress"
)

func TestStartTaskDefaults(t *testing.T) {
	tr := progress.NewTracker()

	taskID := tr.StartTask("fp-1", []string{"a/b"})
	require.NotEmpty(t, taskID)

	task, ok := tr.ByID(taskID)
	require.True(t, ok)
	require.Equal(t, progress.PhaseStarting, task.Phase)
	require.Equal(t, 0, task.Progress)
	require.Nil(t, task.Terminal)
}

func TestUpdateProgressAdvancesPhase(t *testing.T) {
	tr := progress.NewTracker()
	taskID := tr.StartTask("fp-1", nil)

	tr.UpdateProgress(taskID, progress.PhaseCloning, 10, "cloning repo", 0)

	task, ok := tr.ByID(taskID)
	require.True(t, ok)
	require.Equal(t, progress.PhaseCloning, task.Phase)
	require.Equal(t, 10, task.Progress)
	require.Equal(t, "cloning repo", task.Message)
}

func TestCompleteTaskSetsTerminal(t *testing.T) {
	tr := progress.NewTracker()
	taskID := tr.StartTask("fp-1", nil)

	tr.CompleteTask(taskID, "bundle-1")

	task, ok := tr.ByID(taskID)
	require.True(t, ok)
	require.Equal(t, progress.PhaseComplete, task.Phase)
	require.Equal(t, 100, task.Progress)
	require.NotNil(t, task.Terminal)
	require.Equal(t, "bundle-1", task.Terminal.BundleID)

	active := tr.ListActiveTasks()
	require.Empty(t, active)
}

func TestFailTaskSetsTerminalError(t *testing.T) {
	tr := progress.NewTracker()
	taskID := tr.StartTask("fp-1", nil)

	tr.FailTask(taskID, "boom")

	task, ok := tr.ByID(taskID)
	require.True(t, ok)
	require.Equal(t, "boom", task.Terminal.Error)
}

func TestByFingerprintReturnsMostRecent(t *testing.T) {
	tr := progress.NewTracker()

	first := tr.StartTask("fp-1", nil)
	tr.FailTask(first, "stale")

	second := tr.StartTask("fp-1", nil)

	task, ok := tr.ByFingerprint("fp-1")
	require.True(t, ok)
	require.Equal(t, second, task.TaskID)
}

func TestListActiveTasksExcludesTerminal(t *testing.T) {
	tr := progress.NewTracker()

	active := tr.StartTask("fp-active", nil)
	done := tr.StartTask("fp-done", nil)
	tr.CompleteTask(done, "bundle-x")

	tasks := tr.ListActiveTasks()
	require.Len(t, tasks, 1)
	require.Equal(t, active, tasks[0].TaskID)
}

func TestUnknownTaskIDOperationsAreNoop(t *testing.T) {
	tr := progress.NewTracker()

	tr.UpdateProgress("missing", progress.PhaseCloning, 5, "x", 0)
	tr.CompleteTask("missing", "bundle")
	tr.FailTask("missing", "err")

	_, ok := tr.ByID("missing")
	require.False(t, ok)
}
