package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/johnsonfarmsus/claw-conductor/internal/config"
	"github.com/johnsonfarmsus/claw-conductor/internal/consolidate"
	"github.com/johnsonfarmsus/claw-conductor/internal/events"
	"github.com/johnsonfarmsus/claw-conductor/internal/executor"
	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
	"github.com/johnsonfarmsus/claw-conductor/internal/persistence"
	"github.com/johnsonfarmsus/claw-conductor/internal/project"
	"github.com/johnsonfarmsus/claw-conductor/internal/scheduler"
	"github.com/johnsonfarmsus/claw-conductor/internal/tui"
)

// shutdownWait bounds how long a cancelled run may spend winding down.
const shutdownWait = 10 * time.Second

// runOptions carries the parsed run flags.
type runOptions struct {
	TasksPath string
	Project   string
	Workspace string
	Workers   int
	NoTUI     bool
	Verbose   bool
}

func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	opts := runOptions{}
	fs.StringVar(&opts.TasksPath, "tasks", "", "path to the decomposed task file (required)")
	fs.StringVar(&opts.Project, "project", "", "project name (default: the task file's project field)")
	fs.StringVar(&opts.Workspace, "workspace", "", "project workspace (default: <projects root>/<name>)")
	fs.IntVar(&opts.Workers, "workers", 0, "max concurrent workers (overrides config)")
	fs.BoolVar(&opts.NoTUI, "no-tui", false, "run without the dashboard")
	fs.BoolVar(&opts.Verbose, "verbose", false, "log to stderr instead of the workspace log file")
	fs.Parse(args)

	if opts.TasksPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -tasks is required")
		fs.Usage()
		return 2
	}

	// Signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runEpisode(ctx, opts)
}

// runEpisode wires one full episode: project workspace, executors, pool,
// journal, optional dashboard, consolidation.
func runEpisode(ctx context.Context, opts runOptions) int {
	tf, err := config.LoadTasks(opts.TasksPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tasks: %v\n", err)
		return 1
	}

	name := opts.Project
	if name == "" {
		name = tf.Project
	}
	if name == "" {
		fmt.Fprintln(os.Stderr, "Error: no project name (-project flag or task file project field)")
		return 1
	}

	workspace := opts.Workspace
	root := ""
	if workspace == "" {
		root, err = project.DefaultRoot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving projects root: %v\n", err)
			return 1
		}
		workspace = filepath.Join(root, name)
	}

	cfg, err := config.LoadForWorkspace(workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if opts.Workers > 0 {
		cfg.MaxWorkers = opts.Workers
	}

	logDir := filepath.Join(workspace, config.StateDirName)
	if opts.Verbose {
		logDir = ""
	}
	log, err := logging.New(logDir, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		return 1
	}
	defer log.Close()

	proj, err := project.NewManager(root, log).Create(ctx, name, tf.Description, workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating project: %v\n", err)
		return 1
	}
	log = log.WithProject(proj.ID)

	bus := events.NewBus()

	store, err := persistence.Open(ctx, persistence.StatePath(workspace))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		return 1
	}
	defer store.Close()

	ep := persistence.NewEpisode(proj.ID, proj.Name, workspace)
	if err := store.CreateEpisode(ctx, ep); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording episode: %v\n", err)
		return 1
	}
	journal := persistence.NewJournal(store, ep.ID, bus, log)

	// The dashboard subscribes before any task is scheduled so it sees the
	// whole run.
	useTUI := !opts.NoTUI && stdoutIsTerminal()
	var program *tea.Program
	if useTUI {
		globalPath, _ := config.GlobalPath()
		model := tui.New(bus, cfg, globalPath, config.ProjectPath(workspace))
		program = tea.NewProgram(model, tea.WithAltScreen())
	}

	pm := executor.NewProcessManager()
	execs, err := buildRegistry(cfg, pm, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	tasks := tasksFromFile(tf)
	graph, err := scheduler.NewGraph(tasks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error validating tasks: %v\n", err)
		return 1
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	pool := scheduler.NewPool(runCtx, scheduler.PoolConfig{
		Project:     proj.Ref(),
		MaxWorkers:  cfg.MaxWorkers,
		TaskTimeout: cfg.TaskTimeout(),
		Bus:         bus,
		Log:         log,
	}, graph, execs)

	for _, task := range tasks {
		if err := pool.Schedule(task); err != nil {
			fmt.Fprintf(os.Stderr, "Error scheduling %s: %v\n", task.ID, err)
			return 1
		}
	}

	driver := &episodeDriver{
		pool:  pool,
		graph: graph,
		store: store,
		epID:  ep.ID,
		log:   log,
		cons: consolidate.New(consolidate.Config{
			Project:     proj.Name,
			Workspace:   workspace,
			Push:        cfg.Consolidation.Push,
			TestTimeout: cfg.Consolidation.TestTimeout(),
			Bus:         bus,
			Log:         log,
		}),
	}

	var summary *consolidate.Summary
	var runErr error

	if useTUI {
		done := make(chan struct{})
		go func() {
			defer close(done)
			summary, runErr = driver.run(runCtx)
			program.Quit()
		}()

		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Dashboard error: %v\n", err)
		}

		// Dashboard closed before the episode finished: treat it as a
		// cancellation request and wait bounded.
		select {
		case <-done:
		default:
			cancelRun()
			select {
			case <-done:
			case <-time.After(shutdownWait):
				log.Error("shutdown wait exceeded, exiting")
			}
		}
	} else {
		summary, runErr = driver.run(runCtx)
	}

	proj.Finish(summary)

	if err := pm.KillAll(); err != nil {
		log.Warn("killing leftover executor processes", "error", err)
	}
	bus.Close()
	journal.Wait()

	printSummary(os.Stdout, proj, summary, runErr)
	if runErr != nil || summary == nil || !summary.Success {
		return 1
	}
	return 0
}

// episodeDriver runs the scheduling and consolidation phases of one episode.
type episodeDriver struct {
	pool  *scheduler.Pool
	graph *scheduler.Graph
	cons  *consolidate.Consolidator
	store persistence.Store
	epID  string
	log   *logging.Logger
}

// run drains the pool, then consolidates. An episode cancelled before the
// drain finishes is closed out in the journal here, since consolidation
// never runs to publish its event.
func (d *episodeDriver) run(ctx context.Context) (*consolidate.Summary, error) {
	if err := d.pool.WaitAll(ctx); err != nil {
		d.log.Error("episode aborted before drain", "error", err)

		outcome := persistence.EpisodeOutcome{
			Status:         persistence.EpisodeFailed,
			TasksCompleted: len(d.pool.CompletedTasks()),
			TasksFailed:    len(d.pool.FailedTasks()),
			Error:          "episode aborted: " + err.Error(),
		}
		finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := d.store.FinishEpisode(finishCtx, d.epID, outcome); ferr != nil {
			d.log.Warn("recording aborted episode", "error", ferr)
		}
		return nil, err
	}

	return d.cons.Consolidate(ctx, d.graph.Tasks())
}

// buildRegistry constructs every configured executor behind its circuit
// breaker.
func buildRegistry(cfg *config.Config, pm *executor.ProcessManager, log *logging.Logger) (*executor.Registry, error) {
	breakers := executor.NewBreakerRegistry(log)
	reg := executor.NewRegistry(cfg.DefaultExecutor)

	for id, ec := range cfg.Executors {
		e, err := executor.New(id, executor.Config{
			Type:    ec.Type,
			Command: ec.Command,
			Args:    ec.Args,
			Model:   ec.Model,
		}, pm, log)
		if err != nil {
			return nil, fmt.Errorf("configuring executor %q: %w", id, err)
		}
		reg.Register(breakers.Wrap(e))
	}

	if _, err := reg.Resolve(""); err != nil {
		return nil, fmt.Errorf("default executor %q is not configured", cfg.DefaultExecutor)
	}
	return reg, nil
}

// tasksFromFile converts task file records into scheduler tasks, in file
// order. Submission order is admission order for tasks that are ready
// together.
func tasksFromFile(tf *config.TaskFile) []*scheduler.Task {
	tasks := make([]*scheduler.Task, 0, len(tf.Tasks))
	for _, spec := range tf.Tasks {
		tasks = append(tasks, &scheduler.Task{
			ID:           spec.ID,
			Description:  spec.Description,
			Category:     spec.Category,
			Complexity:   spec.Complexity,
			Dependencies: spec.Dependencies,
			FileTargets:  spec.FileTargets,
			ExecutorID:   spec.Executor,
		})
	}
	return tasks
}

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, proj *project.Project, summary *consolidate.Summary, runErr error) {
	if summary == nil {
		fmt.Fprintf(w, "Run aborted: %v\n", runErr)
		return
	}

	fmt.Fprintf(w, "Project %s: %d completed, %d failed\n", proj.Name, summary.TasksCompleted, summary.TasksFailed)

	if summary.Tests != nil {
		if summary.Tests.Success {
			fmt.Fprintf(w, "Tests (%s): passed\n", summary.Tests.Framework)
		} else {
			fmt.Fprintf(w, "Tests (%s): failed: %s\n", summary.Tests.Framework, summary.Tests.Error)
		}
	}

	switch {
	case summary.CommitID != "":
		fmt.Fprintf(w, "Committed %s\n", summary.CommitID)
	case summary.Success:
		fmt.Fprintln(w, "No changes to commit")
	}

	if summary.Push != nil {
		if summary.Push.Success {
			fmt.Fprintln(w, "Pushed to remote")
		} else {
			fmt.Fprintf(w, "Push failed: %s\n", summary.Push.Error)
		}
	}

	if !summary.Success {
		fmt.Fprintf(w, "Consolidation failed: %v\n", runErr)
	}
	fmt.Fprintf(w, "Project status: %s\n", proj.Status)
}

// stdoutIsTerminal reports whether stdout is attached to a terminal.
func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
