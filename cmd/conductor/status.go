package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/johnsonfarmsus/claw-conductor/internal/persistence"
)

func statusCmd(args []string) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	workspace := fs.String("workspace", ".", "project workspace to inspect")
	fs.Parse(args)

	ctx := context.Background()

	path := persistence.StatePath(*workspace)
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "No conductor state at %s\n", path)
		return 1
	}

	store, err := persistence.Open(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		return 1
	}
	defer store.Close()

	ep, err := store.LatestEpisode(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	records, err := store.TaskRecords(ctx, ep.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printStatus(os.Stdout, ep, records)
	return 0
}

// printStatus renders the latest episode and its task table.
func printStatus(w io.Writer, ep *persistence.Episode, records []*persistence.TaskRecord) {
	fmt.Fprintf(w, "Project:  %s (%s)\n", ep.ProjectName, ep.ProjectID)
	fmt.Fprintf(w, "Episode:  %s\n", ep.ID)
	fmt.Fprintf(w, "Status:   %s\n", ep.Status)
	fmt.Fprintf(w, "Started:  %s\n", ep.StartedAt.Local().Format(time.RFC1123))
	if !ep.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished: %s\n", ep.FinishedAt.Local().Format(time.RFC1123))
	}
	if ep.CommitID != "" {
		fmt.Fprintf(w, "Commit:   %s\n", ep.CommitID)
	}
	if ep.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", ep.Error)
	}
	fmt.Fprintf(w, "Tasks:    %d completed, %d failed\n", ep.TasksCompleted, ep.TasksFailed)

	if len(records) == 0 {
		return
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tEXECUTOR\tDURATION\tDETAIL")
	for _, rec := range records {
		duration := ""
		if !rec.StartedAt.IsZero() && !rec.CompletedAt.IsZero() {
			duration = rec.CompletedAt.Sub(rec.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rec.TaskID, rec.Status, rec.ExecutorID, duration, truncate(rec.Error, 60))
	}
	tw.Flush()
}

// truncate shortens s for table display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
