// Package persistence journals episodes and task transitions to SQLite so
// a run can be inspected while it happens and after it finishes.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/johnsonfarmsus/claw-conductor/internal/config"
)

// Episode statuses.
const (
	EpisodeInProgress = "in_progress"
	EpisodeCompleted  = "completed"
	EpisodeFailed     = "failed"
)

// Episode is one scheduling run over a project task list.
type Episode struct {
	ID             string
	ProjectID      string
	ProjectName    string
	Workspace      string
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time // zero while in progress
	CommitID       string
	TasksCompleted int
	TasksFailed    int
	Error          string
}

// NewEpisode returns an in-progress episode with a fresh id.
func NewEpisode(projectID, projectName, workspace string) *Episode {
	return &Episode{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		ProjectName: projectName,
		Workspace:   workspace,
		Status:      EpisodeInProgress,
		StartedAt:   time.Now().UTC(),
	}
}

// EpisodeOutcome closes out an episode row.
type EpisodeOutcome struct {
	Status         string
	CommitID       string
	TasksCompleted int
	TasksFailed    int
	Error          string
}

// TaskRecord is one task's journal row.
type TaskRecord struct {
	TaskID        string
	Description   string
	Category      string
	ExecutorID    string
	Status        string
	Output        string
	Error         string
	ModifiedFiles []string
	StartedAt     time.Time // zero until started
	CompletedAt   time.Time // zero until terminal
}

// Store is the journal surface consumed by the event subscriber and the
// status command.
type Store interface {
	CreateEpisode(ctx context.Context, ep *Episode) error
	FinishEpisode(ctx context.Context, episodeID string, outcome EpisodeOutcome) error
	LatestEpisode(ctx context.Context) (*Episode, error)
	UpsertTaskRecord(ctx context.Context, episodeID string, rec *TaskRecord) error
	MarkTaskStarted(ctx context.Context, episodeID, taskID, executorID string, at time.Time) error
	MarkTaskBlocked(ctx context.Context, episodeID, taskID string, failedDeps []string) error
	MarkTaskFinished(ctx context.Context, episodeID string, rec *TaskRecord) error
	TaskRecords(ctx context.Context, episodeID string) ([]*TaskRecord, error)
	Close() error
}

// SQLiteStore implements Store on modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// StatePath returns the journal location inside a workspace.
func StatePath(workspace string) string {
	return filepath.Join(workspace, config.StateDirName, "state.db")
}

// Open creates or opens the journal database at path in WAL mode,
// creating parent directories as needed.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_time_format=sqlite", path)
	return open(ctx, dsn)
}

// OpenMemory creates a private in-memory journal for tests. The unique
// name keeps parallel tests from sharing one cache.
func OpenMemory(ctx context.Context) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_time_format=sqlite", uuid.NewString())
	return open(ctx, dsn)
}

func open(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	// One connection for the journal writer, one for status reads
	db.SetMaxOpenConns(2)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
