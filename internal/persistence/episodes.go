package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateEpisode inserts a new episode row.
func (s *SQLiteStore) CreateEpisode(ctx context.Context, ep *Episode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, project_id, project_name, workspace, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ep.ID, ep.ProjectID, ep.ProjectName, ep.Workspace, ep.Status, ep.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

// FinishEpisode records the terminal state of an episode.
func (s *SQLiteStore) FinishEpisode(ctx context.Context, episodeID string, outcome EpisodeOutcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE episodes
		SET status = ?, finished_at = ?, commit_id = ?, tasks_completed = ?, tasks_failed = ?, error = ?
		WHERE id = ?`,
		outcome.Status, time.Now().UTC(), outcome.CommitID,
		outcome.TasksCompleted, outcome.TasksFailed, outcome.Error, episodeID)
	if err != nil {
		return fmt.Errorf("failed to finish episode: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish episode: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("episode not found: %s", episodeID)
	}
	return nil
}

// LatestEpisode returns the most recently started episode.
func (s *SQLiteStore) LatestEpisode(ctx context.Context) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, project_name, workspace, status, started_at,
			finished_at, commit_id, tasks_completed, tasks_failed, error
		FROM episodes
		ORDER BY started_at DESC
		LIMIT 1`)

	var ep Episode
	var finishedAt sql.NullTime
	err := row.Scan(&ep.ID, &ep.ProjectID, &ep.ProjectName, &ep.Workspace,
		&ep.Status, &ep.StartedAt, &finishedAt, &ep.CommitID,
		&ep.TasksCompleted, &ep.TasksFailed, &ep.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no episodes recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest episode: %w", err)
	}
	if finishedAt.Valid {
		ep.FinishedAt = finishedAt.Time
	}
	return &ep, nil
}
