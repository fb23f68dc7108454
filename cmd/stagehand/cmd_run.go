package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stagehand/cmd/stagehand/ui"
	"stagehand/internal/app"
	"stagehand/internal/events"
	"stagehand/internal/lifecycle"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the wait for asset workers at exit. The final
// settings flush is never cut short.
const shutdownTimeout = 5 * time.Second

var (
	headless    bool
	maxTicks    int
	startBundle string
)

// runCmd runs the lifecycle, interactively or headless
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the application lifecycle",
	Long: `Runs the lifecycle until exit is requested.

With --headless no terminal UI is drawn: frames are ticked at the
configured frame rate and every phase change is printed. Combine with
--start-phase InGame to load a bundle without touching the menu.

Example:
  stagehand run --headless --start-phase InGame --bundle level1 --ticks 600`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if headless {
			return runHeadless(cmd)
		}
		return runInteractive(cmd, args)
	},
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newRuntime(ctx context.Context, watch bool) (*app.Runtime, error) {
	rt, err := app.New(ctx, app.Options{
		Config:      cfg,
		Watch:       watch,
		StartBundle: startBundle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start runtime: %w", err)
	}
	report := rt.SettingsLoadReport()
	if report.Err != nil {
		logger.Warn("settings file problem, continuing with usable settings",
			zap.Error(report.Err), zap.String("backup", report.BackupPath))
	}
	return rt, nil
}

func shutdown(rt *app.Runtime) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		logger.Error("shutdown incomplete", zap.Error(err))
		return err
	}
	return nil
}

// runInteractive starts the bubbletea front end.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, true)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		ui.New(rt, cfg.GetFrameInterval()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}
	if err := shutdown(rt); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// runHeadless ticks the runtime without a UI, printing phase changes.
func runHeadless(cmd *cobra.Command) error {
	ctx, cancel := signalContext()
	defer cancel()

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	rt.Subscribe(func(e events.Event) {
		switch e := e.(type) {
		case lifecycle.PhaseChanged:
			fmt.Fprintf(out, "phase %s -> %s\n", e.Old, e.New)
		case events.BundleLoadFailed:
			fmt.Fprintf(out, "bundle failed on %s\n", e.Asset)
		}
	})

	runErr := rt.RunHeadless(ctx, cfg.GetFrameInterval(), maxTicks)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	st := rt.Status()
	fmt.Fprintf(out, "stopped in %s after %d frames\n", st.Phase, st.Frame)
	if st.Failure != nil {
		fmt.Fprintf(out, "failure: %v\n", st.Failure)
	}
	if err := shutdown(rt); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
