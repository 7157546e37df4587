package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sightline/internal/capture"
	"sightline/internal/config"
	"sightline/internal/framesource"
	"sightline/internal/history"
	"sightline/internal/overlay"
	"sightline/internal/scanner"
	"sightline/internal/services/zbar"
	"sightline/internal/session"
	"sightline/internal/session/snapshot"
	"sightline/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		serialFlag      string
		descriptionFlag string
		workflowFlag    string
		resumeFlag      string
		syntheticFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "run {capture|qc|maintenance}",
		Short: "Start or resume a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := session.Mode(strings.ToLower(strings.TrimSpace(args[0])))
			switch mode {
			case session.ModeCapture, session.ModeQC, session.ModeMaintenance:
			default:
				return fmt.Errorf("unknown mode %q (capture, qc, or maintenance)", args[0])
			}
			return runSession(cmd, ctx, runOptions{
				mode:        mode,
				serial:      serialFlag,
				description: descriptionFlag,
				workflow:    workflowFlag,
				resumeID:    resumeFlag,
				synthetic:   syntheticFlag,
			})
		},
	}

	cmd.Flags().StringVar(&serialFlag, "serial", "", "Unit serial number")
	cmd.Flags().StringVar(&descriptionFlag, "description", "", "Free-form session description")
	cmd.Flags().StringVar(&workflowFlag, "workflow", "", "Workflow name (qc and maintenance modes)")
	cmd.Flags().StringVar(&resumeFlag, "resume", "", "Session id to resume")
	cmd.Flags().BoolVar(&syntheticFlag, "synthetic", false, "Use the synthetic frame source instead of a camera")

	return cmd
}

type runOptions struct {
	mode        session.Mode
	serial      string
	description string
	workflow    string
	resumeID    string
	synthetic   bool
}

func runSession(cmd *cobra.Command, cmdCtx *commandContext, opts runOptions) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	store, err := cmdCtx.openSnapshotStore()
	if err != nil {
		return err
	}

	// The staleness sweep runs once at process start, before any session
	// is live.
	sweepOpts := snapshot.SweepOptions{
		RetentionDays: cfg.Persistence.RetentionDays,
		SweepMedia:    cfg.Persistence.SweepMedia,
	}
	if _, err := store.Sweep(sweepOpts, time.Now()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "sweep: %v\n", err)
	}

	var (
		state *session.State
		def   *workflow.Definition
	)
	if opts.resumeID != "" {
		state, err = store.Load(opts.resumeID)
		if err != nil {
			return fmt.Errorf("cannot resume: %w", err)
		}
		if state.Mode != opts.mode {
			return fmt.Errorf("session %s is a %s session", opts.resumeID, state.Mode)
		}
		if state.WorkflowName != "" {
			def, err = workflow.LoadByName(cfg.Paths.WorkflowDir, state.WorkflowName)
			if err != nil {
				return fmt.Errorf("load workflow %q: %w", state.WorkflowName, err)
			}
		}
	} else {
		if opts.mode.Guided() {
			if opts.workflow == "" {
				return fmt.Errorf("%s mode requires --workflow", opts.mode)
			}
			def, err = workflow.LoadByName(cfg.Paths.WorkflowDir, opts.workflow)
			if err != nil {
				return err
			}
		}
		name := ""
		if def != nil {
			name = def.Name
		}
		state = session.NewState(opts.mode, opts.serial, opts.description, name)
	}

	lock, err := store.AcquireLock(state.ID)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	owner, err := session.NewOwner(state, def, logger)
	if err != nil {
		return err
	}
	if err := store.Save(owner.Snapshot()); err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := openFrameSource(runCtx, cfg, opts.synthetic, logger)
	if err != nil {
		return err
	}

	var detector scanner.Detector
	if cfg.Scanner.Enabled {
		detector = zbar.NewDetector(cfg.ZbarBinary(), logger)
	}

	runner, err := capture.NewRunner(capture.Options{
		Owner:    owner,
		Source:   source,
		Detector: detector,
		Store:    store,
		Config:   cfg,
		Logger:   logger,
	})
	if err != nil {
		_ = source.Close()
		return err
	}
	if err := runner.Start(runCtx); err != nil {
		_ = source.Close()
		return err
	}

	watcher := framesource.NewWatcher(logger, func(ev framesource.HotplugEvent) {
		if ev.Removed && ev.Device == source.Descriptor().Device {
			fmt.Fprintf(cmd.ErrOrStderr(), "camera %s removed\n", ev.Device)
		}
	})
	if !opts.synthetic {
		_ = watcher.Start(runCtx)
		defer watcher.Stop()
	}

	go func() {
		for ev := range runner.Events() {
			if ev.Type == capture.EventSourceLost {
				fmt.Fprintf(cmd.ErrOrStderr(), "frame source lost (%s); session is saved, quit and resume with another camera\n", ev.Device)
			}
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "session %s started (%s). Type 'help' for commands.\n", state.ID, state.Mode)
	printStep(cmd, owner)

	err = commandLoop(cmd, runCtx, cmdCtx, runner, store)
	closeErr := runner.Close()
	if err != nil {
		return err
	}
	return closeErr
}

func openFrameSource(ctx context.Context, cfg *config.Config, synthetic bool, logger *slog.Logger) (framesource.Source, error) {
	if synthetic {
		return framesource.NewSynthetic(cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.FPS), nil
	}
	return framesource.OpenCamera(ctx, framesource.CameraConfig{
		Binary: cfg.FFmpegBinary(),
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	}, logger)
}

// commandLoop reads operator commands from stdin until quit, discard, or
// workflow completion.
func commandLoop(cmd *cobra.Command, ctx context.Context, cmdCtx *commandContext, runner *capture.Runner, store *snapshot.Store) error {
	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	owner := runner.Owner()

	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		verb, rest := fields[0], fields[1:]

		switch verb {
		case "help":
			printRunHelp(out)
		case "status":
			printStatus(cmd, runner)
		case "photo":
			medium, err := runner.CapturePhoto()
			if err != nil {
				fmt.Fprintf(out, "photo: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "saved %s\n", medium.Path)
		case "record":
			if err := runner.StartRecording(ctx); err != nil {
				fmt.Fprintf(out, "record: %v\n", err)
				continue
			}
			fmt.Fprintln(out, "recording")
		case "stopvideo":
			medium, err := runner.StopRecording()
			if err != nil {
				fmt.Fprintf(out, "stopvideo: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "saved %s (%s)\n", medium.Path, runner.RecordingElapsed())
		case "mark":
			handleMark(out, runner, rest)
		case "unmark":
			handleUnmark(out, runner, rest)
		case "marks":
			for i, m := range runner.LiveMarkers() {
				fmt.Fprintf(out, "%d: %s at (%.2f, %.2f) angle %.0f length %d\n", i, m.Label, m.X, m.Y, m.Angle, m.Length)
			}
		case "note":
			handleNote(out, owner, strings.Join(rest, " "))
		case "check":
			if len(rest) != 1 {
				fmt.Fprintln(out, "usage: check <checkbox-id>")
				continue
			}
			if err := owner.ToggleCheckbox(rest[0]); err != nil {
				fmt.Fprintf(out, "check: %v\n", err)
			}
		case "pass", "fail":
			mark := verb == "pass"
			if err := owner.SetPassFail(&mark); err != nil {
				fmt.Fprintf(out, "%s: %v\n", verb, err)
			}
		case "advance":
			done, err := handleAdvance(cmd, cmdCtx, runner, store)
			if err != nil {
				fmt.Fprintf(out, "advance: %v\n", err)
				continue
			}
			if done {
				return nil
			}
		case "back":
			if err := owner.Back(); err != nil {
				fmt.Fprintf(out, "back: %v\n", err)
				continue
			}
			printStep(cmd, owner)
		case "discard":
			return discardSession(cmd, cmdCtx, owner.Snapshot(), store)
		case "quit", "exit":
			fmt.Fprintf(out, "session saved; resume with --resume %s\n", owner.Snapshot().ID)
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q; try 'help'\n", verb)
		}
	}
}

func handleMark(out interface{ Write([]byte) (int, error) }, runner *capture.Runner, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: mark <x> <y> [angle]")
		return
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		fmt.Fprintln(out, "mark: coordinates must be numbers in [0,1]")
		return
	}
	angle := 0.0
	if len(args) > 2 {
		if parsed, err := strconv.ParseFloat(args[2], 64); err == nil {
			angle = parsed
		}
	}
	var label string
	runner.EditMarkers(func(list *overlay.MarkerList) { label = list.Add(x, y, angle) })
	fmt.Fprintf(out, "marker %s added\n", label)
}

func handleUnmark(out interface{ Write([]byte) (int, error) }, runner *capture.Runner, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: unmark <index>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(out, "unmark: index must be a number")
		return
	}
	runner.EditMarkers(func(list *overlay.MarkerList) { list.RemoveAt(idx) })
}

func handleNote(out interface{ Write([]byte) (int, error) }, owner *session.Owner, note string) {
	state := owner.Snapshot()
	if len(state.Media) == 0 {
		fmt.Fprintln(out, "note: nothing captured yet")
		return
	}
	last := state.Media[len(state.Media)-1]
	if err := owner.SetNotes(last.Path, note); err != nil {
		fmt.Fprintf(out, "note: %v\n", err)
	}
}

// handleAdvance submits the current step. It returns true when the
// workflow completed and the session has been finished.
func handleAdvance(cmd *cobra.Command, cmdCtx *commandContext, runner *capture.Runner, store *snapshot.Store) (bool, error) {
	out := cmd.OutOrStdout()
	owner := runner.Owner()

	decision, err := owner.Advance()
	if err != nil {
		return false, err
	}
	if !decision.Allowed {
		fmt.Fprintln(out, "cannot advance:")
		for _, reason := range decision.Reasons {
			fmt.Fprintf(out, "  - %s\n", reason)
		}
		return false, nil
	}
	fmt.Fprintf(out, "step recorded: %s\n", decision.Status)

	state := owner.Snapshot()
	if !state.Completed {
		printStep(cmd, owner)
		return false, nil
	}

	path, err := finishSession(cmdCtx, owner, store, history.OutcomeCompleted)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(out, "workflow complete; report written to %s\n", path)
	return true, nil
}

func discardSession(cmd *cobra.Command, cmdCtx *commandContext, state *session.State, store *snapshot.Store) error {
	hist, err := cmdCtx.openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()
	if _, err := hist.Archive(cmd.Context(), state, nil, history.OutcomeDiscarded, ""); err != nil {
		return err
	}
	if err := store.Delete(state.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %s discarded\n", state.ID)
	return nil
}

func printStep(cmd *cobra.Command, owner *session.Owner) {
	out := cmd.OutOrStdout()
	step, idx, ok := owner.CurrentStep()
	if !ok {
		return
	}
	fmt.Fprintf(out, "step %d: %s\n", idx+1, step.Title)
	if step.Instructions != "" {
		fmt.Fprintf(out, "  %s\n", step.Instructions)
	}
	for _, cb := range step.Checkboxes {
		fmt.Fprintf(out, "  [ ] %s\n", cb.ID)
	}
}

func printStatus(cmd *cobra.Command, runner *capture.Runner) {
	out := cmd.OutOrStdout()
	state := runner.Owner().Snapshot()
	fmt.Fprintf(out, "session %s  serial %s  media %d\n", state.ID, state.SerialNumber, len(state.Media))
	if runner.Recording() {
		fmt.Fprintf(out, "recording: %s\n", runner.RecordingElapsed())
	}
	if runner.ScanVisible() {
		fmt.Fprintln(out, "barcode in view")
	}
	if decision, err := runner.Owner().Evaluate(); err == nil {
		if decision.Allowed {
			fmt.Fprintf(out, "step ready to advance (%s)\n", decision.Status)
		} else {
			fmt.Fprintf(out, "step blocked: %v\n", decision.Reasons)
		}
	}
}

func printRunHelp(out interface{ Write([]byte) (int, error) }) {
	fmt.Fprint(out, `commands:
  photo                capture a still with the live markers
  record / stopvideo   start or finish a recording
  mark <x> <y> [deg]   add a marker (relative coordinates)
  unmark <i>           remove marker i (labels re-sequence)
  marks                list live markers
  note <text>          set notes on the last capture
  check <id>           toggle a checkbox on this step
  pass / fail          set the explicit step mark
  advance / back       move through the workflow
  status               session and step status
  quit                 save and exit (resumable)
  discard              archive as discarded and delete the snapshot
`)
}
