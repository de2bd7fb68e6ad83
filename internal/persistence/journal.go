package persistence

import (
	"context"
	"time"

	"github.com/johnsonfarmsus/claw-conductor/internal/events"
	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

// writeTimeout bounds each journal write so a wedged database cannot
// stall run shutdown.
const writeTimeout = 5 * time.Second

// Journal subscribes to the event bus and mirrors task and consolidation
// events into a Store. Close the bus, then Wait, to flush it.
type Journal struct {
	store     Store
	episodeID string
	log       *logging.Logger
	events    <-chan events.Event
	done      chan struct{}
}

// NewJournal starts journaling bus events under the given episode. The
// episode row must already exist.
func NewJournal(store Store, episodeID string, bus *events.Bus, log *logging.Logger) *Journal {
	if log == nil {
		log = logging.Nop()
	}
	j := &Journal{
		store:     store,
		episodeID: episodeID,
		log:       log.WithComponent("journal"),
		events:    bus.SubscribeAll(256),
		done:      make(chan struct{}),
	}
	go j.run()
	return j
}

// Wait blocks until all events published before the bus closed have been
// written.
func (j *Journal) Wait() {
	<-j.done
}

func (j *Journal) run() {
	defer close(j.done)
	for ev := range j.events {
		if err := j.record(ev); err != nil {
			j.log.Warn("journal write failed", "event", ev.EventType(), "task", ev.TaskID(), "error", err)
		}
	}
}

func (j *Journal) record(ev events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	switch e := ev.(type) {
	case events.TaskScheduledEvent:
		return j.store.UpsertTaskRecord(ctx, j.episodeID, &TaskRecord{
			TaskID:      e.ID,
			Description: e.Description,
			Category:    e.Category,
			Status:      "pending",
		})
	case events.TaskStartedEvent:
		return j.store.MarkTaskStarted(ctx, j.episodeID, e.ID, e.ExecutorID, e.Timestamp)
	case events.TaskBlockedEvent:
		return j.store.MarkTaskBlocked(ctx, j.episodeID, e.ID, e.FailedDeps)
	case events.TaskCompletedEvent:
		return j.store.MarkTaskFinished(ctx, j.episodeID, &TaskRecord{
			TaskID:        e.ID,
			Status:        "completed",
			Output:        e.Output,
			ModifiedFiles: e.ModifiedFiles,
			CompletedAt:   e.Timestamp,
		})
	case events.TaskFailedEvent:
		return j.store.MarkTaskFinished(ctx, j.episodeID, &TaskRecord{
			TaskID:      e.ID,
			Status:      "failed",
			Output:      e.Output,
			Error:       e.Error,
			CompletedAt: e.Timestamp,
		})
	case events.ConsolidationEvent:
		status := EpisodeCompleted
		if !e.Success {
			status = EpisodeFailed
		}
		return j.store.FinishEpisode(ctx, j.episodeID, EpisodeOutcome{
			Status:         status,
			CommitID:       e.CommitID,
			TasksCompleted: e.TasksCompleted,
			TasksFailed:    e.TasksFailed,
			Error:          e.Error,
		})
	default:
		return nil
	}
}
