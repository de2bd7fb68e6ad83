package consolidate

import "errors"

// Sentinel errors callers branch on after a failed consolidation.
var (
	// ErrNoCompletedTasks means every task failed or stayed pending;
	// there is nothing worth committing.
	ErrNoCompletedTasks = errors.New("no tasks completed successfully")

	// ErrUnresolvedConflicts means the workspace has unmerged paths that
	// need manual resolution before any commit.
	ErrUnresolvedConflicts = errors.New("unresolved conflicts in workspace")
)

// TestOutcome records the advisory test run. A nil TestOutcome in a
// Summary means no test framework was detected.
type TestOutcome struct {
	Framework string // "pytest" or "npm"
	Success   bool
	Output    string
	Error     string
}

// PushOutcome records the push attempt. Nil in a Summary means no push
// happened (disabled, or no remote configured).
type PushOutcome struct {
	Success bool
	Error   string
}

// Summary is the consolidation outcome handed back to the episode driver.
// Success is false only for the abort conditions; failed advisory tests
// and failed pushes leave it true.
type Summary struct {
	Success        bool
	TasksCompleted int
	TasksFailed    int
	CommitID       string   // empty when there was nothing to commit
	Conflicts      []string // unmerged paths, set on conflict abort
	Tests          *TestOutcome
	Push           *PushOutcome
}
