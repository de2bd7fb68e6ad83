package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// UpsertTaskRecord inserts or refreshes a task row. Start and completion
// timestamps are owned by MarkTaskStarted and MarkTaskFinished and are
// left alone here.
func (s *SQLiteStore) UpsertTaskRecord(ctx context.Context, episodeID string, rec *TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_records (episode_id, task_id, description, category, executor_id, status, output, error, modified_files)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (episode_id, task_id) DO UPDATE SET
			description = excluded.description,
			category = excluded.category,
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			modified_files = excluded.modified_files`,
		episodeID, rec.TaskID, rec.Description, rec.Category, rec.ExecutorID,
		rec.Status, rec.Output, rec.Error, strings.Join(rec.ModifiedFiles, ","))
	if err != nil {
		return fmt.Errorf("failed to save task record: %w", err)
	}
	return nil
}

// MarkTaskStarted records dispatch of a task to an executor.
func (s *SQLiteStore) MarkTaskStarted(ctx context.Context, episodeID, taskID, executorID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_records (episode_id, task_id, description, executor_id, status, started_at)
		VALUES (?, ?, '', ?, 'running', ?)
		ON CONFLICT (episode_id, task_id) DO UPDATE SET
			status = 'running',
			executor_id = excluded.executor_id,
			started_at = excluded.started_at`,
		episodeID, taskID, executorID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark task started: %w", err)
	}
	return nil
}

// MarkTaskBlocked notes why a task can never run. The task stays pending.
func (s *SQLiteStore) MarkTaskBlocked(ctx context.Context, episodeID, taskID string, failedDeps []string) error {
	reason := "blocked by failed dependencies: " + strings.Join(failedDeps, ", ")
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_records (episode_id, task_id, description, status, error)
		VALUES (?, ?, '', 'pending', ?)
		ON CONFLICT (episode_id, task_id) DO UPDATE SET
			error = excluded.error`,
		episodeID, taskID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark task blocked: %w", err)
	}
	return nil
}

// MarkTaskFinished records a task's terminal status and output.
func (s *SQLiteStore) MarkTaskFinished(ctx context.Context, episodeID string, rec *TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_records (episode_id, task_id, description, status, output, error, modified_files, completed_at)
		VALUES (?, ?, '', ?, ?, ?, ?, ?)
		ON CONFLICT (episode_id, task_id) DO UPDATE SET
			status = excluded.status,
			output = excluded.output,
			error = excluded.error,
			modified_files = excluded.modified_files,
			completed_at = excluded.completed_at`,
		episodeID, rec.TaskID, rec.Status, rec.Output, rec.Error,
		strings.Join(rec.ModifiedFiles, ","), rec.CompletedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark task finished: %w", err)
	}
	return nil
}

// TaskRecords returns all task rows for an episode in insertion order.
func (s *SQLiteStore) TaskRecords(ctx context.Context, episodeID string) ([]*TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, description, category, executor_id, status, output, error, modified_files, started_at, completed_at
		FROM task_records
		WHERE episode_id = ?
		ORDER BY rowid`,
		episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task records: %w", err)
	}
	defer rows.Close()

	var records []*TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var files string
		var startedAt, completedAt sql.NullTime
		err := rows.Scan(&rec.TaskID, &rec.Description, &rec.Category, &rec.ExecutorID,
			&rec.Status, &rec.Output, &rec.Error, &files, &startedAt, &completedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}
		if files != "" {
			rec.ModifiedFiles = strings.Split(files, ",")
		}
		if startedAt.Valid {
			rec.StartedAt = startedAt.Time
		}
		if completedAt.Valid {
			rec.CompletedAt = completedAt.Time
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load task records: %w", err)
	}
	return records, nil
}
