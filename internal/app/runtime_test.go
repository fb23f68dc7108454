package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"stagehand/internal/assets"
	"stagehand/internal/config"
	"stagehand/internal/events"
	"stagehand/internal/fade"
	"stagehand/internal/lifecycle"
	"stagehand/internal/logging"
	"stagehand/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testManifest = `
bundle "level1" {
  asset "tex/ground.png" {}
  asset "tex/sky.png" {}
  asset "mdl/hero.obj" {}
  asset "snd/theme.ogg" {
    optional = true
  }
  asset "snd/wind.ogg" {
    optional = true
  }
}

bundle "menu" {
  asset "ui/logo.png" {}
}
`

const frame = 16 * time.Millisecond

type harness struct {
	rt       *Runtime
	cfg      *config.Config
	audit    *observer.ObservedLogs
	failSky  atomic.Bool
	fetches  atomic.Int32
	blocking atomic.Bool
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.Settings = filepath.Join(dir, "settings.yaml")
	cfg.Paths.DataDir = dir
	cfg.Timing.Splash = "100ms"
	cfg.Timing.Fade = "32ms"
	cfg.Timing.SettingsDebounce = "100ms"
	if mutate != nil {
		mutate(cfg)
	}

	manifest, err := assets.ParseManifest([]byte(testManifest), "test.hcl")
	require.NoError(t, err)

	h := &harness{cfg: cfg}
	core, logs := observer.New(zapcore.InfoLevel)
	h.audit = logs
	fetcher := assets.FetcherFunc(func(ctx context.Context, ref assets.AssetRef) error {
		h.fetches.Add(1)
		if h.blocking.Load() {
			<-ctx.Done()
			return ctx.Err()
		}
		if ref == "tex/sky.png" && h.failSky.Load() {
			return errors.New("checksum mismatch")
		}
		return nil
	})

	rt, err := New(context.Background(), Options{
		Config:   cfg,
		Fetcher:  fetcher,
		Manifest: manifest,
		Audit:    logging.NewAuditLoggerWithCore(core),
	})
	require.NoError(t, err)
	h.rt = rt
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	return h
}

// tickUntil drives frames until cond holds. Loads finish on worker
// goroutines, so frames are spaced by a little real time.
func (h *harness) tickUntil(t *testing.T, what string, cond func(Status) bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond(h.rt.Status()) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s (phase %s, fade %s)", what, h.rt.Phase(), h.rt.Status().Fade)
		}
		h.rt.Tick(frame)
		time.Sleep(time.Millisecond)
	}
}

func settled(p lifecycle.Phase) func(Status) bool {
	return func(s Status) bool { return s.Phase == p && s.Fade == fade.Idle }
}

func (h *harness) phases() []string {
	var out []string
	for _, e := range h.audit.FilterMessage(string(logging.AuditPhaseChanged)).All() {
		out = append(out, fmt.Sprintf("%v>%v", e.ContextMap()["old"], e.ContextMap()["new"]))
	}
	return out
}

func TestBootShowsSplashThenMenu(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, lifecycle.Booting, h.rt.Phase())
	assert.True(t, h.rt.SettingsLoadReport().FirstRun)

	h.rt.Tick(frame)
	assert.Equal(t, lifecycle.Splash, h.rt.Phase())

	h.tickUntil(t, "main menu", settled(lifecycle.MainMenu))
	assert.Equal(t, []string{"Booting>Splash", "Splash>MainMenu"}, h.phases())
	assert.Equal(t, settings.SurfaceMenuPanel, h.rt.Overlay().Surface())
	assert.Len(t, h.rt.Overlay().Rows(), len(settings.Keys))
}

func TestSkipSplash(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Timing.Splash = "1h" })
	h.rt.Tick(frame)
	require.NoError(t, h.rt.SkipSplash())
	h.tickUntil(t, "main menu", settled(lifecycle.MainMenu))
}

func TestRequiredAssetFailureEndsInError(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.failSky.Store(true)
	h.rt.Tick(frame)
	require.Equal(t, lifecycle.MainMenu, h.rt.Phase())

	require.NoError(t, h.rt.StartGame("level1"))
	h.tickUntil(t, "error", settled(lifecycle.Error))

	st := h.rt.Status()
	var loadErr *lifecycle.AssetLoadError
	require.True(t, errors.As(st.Failure, &loadErr))
	assert.Equal(t, "tex/sky.png", loadErr.Asset)
	assert.Equal(t, []string{"Return to main menu", "Exit"}, st.Recovery)
	assert.Less(t, st.Progress.Fraction(), 1.0)
	assert.Contains(t, h.phases(), "Loading>Error")
	assert.NotContains(t, h.phases(), "Loading>InGame")
	assert.Equal(t, 1, h.audit.FilterMessage(string(logging.AuditBundleLoadFailed)).Len())

	// Error has no way forward except the menu.
	assert.Error(t, h.rt.Pause())
	assert.Error(t, h.rt.StartGame("level1"))

	require.NoError(t, h.rt.ReturnToMenu())
	h.tickUntil(t, "menu after error", settled(lifecycle.MainMenu))
	assert.Nil(t, h.rt.Status().Failure)

	// Retry fetches the failed asset again.
	h.failSky.Store(false)
	require.NoError(t, h.rt.StartGame("level1"))
	h.tickUntil(t, "in game", settled(lifecycle.InGame))
	assert.Equal(t, "level1", h.rt.Status().Bundle)
}

func TestPauseOverlayLifecycle(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.rt.Tick(frame)
	require.NoError(t, h.rt.StartGame("level1"))
	h.tickUntil(t, "in game", settled(lifecycle.InGame))

	assert.Zero(t, h.rt.Overlay().Tree().Len())
	assert.ErrorIs(t, h.rt.SetSetting(settings.KeyMasterVolume, 0.2), ErrSettingsHidden)

	require.NoError(t, h.rt.Pause())
	assert.Equal(t, settings.SurfacePauseOverlay, h.rt.Overlay().Surface())
	assert.Equal(t, "Paused - Settings", h.rt.Overlay().Title())

	require.NoError(t, h.rt.SetSetting(settings.KeyMasterVolume, 0.25))
	h.rt.Tick(frame)
	var master string
	for _, row := range h.rt.Overlay().Rows() {
		if row.Key == settings.KeyMasterVolume {
			master = row.Value
		}
	}
	assert.Equal(t, "25%", master)

	require.NoError(t, h.rt.Resume())
	assert.Equal(t, lifecycle.InGame, h.rt.Phase())
	assert.Zero(t, h.rt.Overlay().Tree().Len(), "overlay subtree removed with its root")
}

func TestCancelLoadingReturnsToMenu(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.blocking.Store(true)
	h.rt.Tick(frame)
	require.NoError(t, h.rt.StartGame("level1"))
	h.tickUntil(t, "loading", func(s Status) bool {
		return s.Phase == lifecycle.Loading && s.Fade == fade.Idle && h.fetches.Load() > 0
	})

	require.NoError(t, h.rt.ReturnToMenu())
	h.tickUntil(t, "menu", settled(lifecycle.MainMenu))
	assert.Equal(t, []string{"Booting>MainMenu", "MainMenu>Loading", "Loading>MainMenu"}, h.phases())
}

func TestStartPhaseInGameLoadsStartBundle(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.StartPhase = "InGame" })
	h.rt.Tick(frame)
	assert.Equal(t, lifecycle.Loading, h.rt.Phase())
	assert.Equal(t, "level1", h.rt.Status().Bundle)
	h.tickUntil(t, "in game", func(s Status) bool { return s.Phase == lifecycle.InGame })
}

func TestStartGameRejections(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	assert.Error(t, h.rt.StartGame("level1"), "still booting")

	h.rt.Tick(frame)
	assert.ErrorIs(t, h.rt.StartGame("credits"), assets.ErrUnknownBundle)
	assert.ErrorIs(t, h.rt.Pause(), lifecycle.ErrInvalidTransition)
	assert.Equal(t, lifecycle.MainMenu, h.rt.Phase())

	require.NoError(t, h.rt.StartGame("menu"))
	assert.ErrorIs(t, h.rt.StartGame("menu"), fade.ErrFaderBusy)
}

func TestShutdownFlushesSettings(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.rt.Tick(frame)
	require.NoError(t, h.rt.SetSetting(settings.KeyLanguage, "de"))
	require.NoError(t, h.rt.Shutdown(context.Background()))

	snap, err := settings.NewPersistence(h.cfg.Paths.Settings).Read()
	require.NoError(t, err)
	assert.Equal(t, "de", snap.Language)
	assert.Equal(t, 1, h.audit.FilterMessage(string(logging.AuditSessionEnd)).Len())

	// Ticks after shutdown do nothing.
	h.rt.Tick(frame)
	assert.Equal(t, lifecycle.MainMenu, h.rt.Phase())
}

func TestExitFromError(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.failSky.Store(true)
	h.rt.Tick(frame)
	require.NoError(t, h.rt.StartGame("level1"))
	h.tickUntil(t, "error", settled(lifecycle.Error))

	h.rt.Exit()
	assert.True(t, h.rt.ExitRequested())
	assert.True(t, h.rt.Status().Exit)
}

func TestRunHeadlessStopsOnExit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.rt.Subscribe(func(e events.Event) {
		if pc, ok := e.(lifecycle.PhaseChanged); ok && pc.New == lifecycle.MainMenu {
			h.rt.Exit()
		}
	})
	err := h.rt.RunHeadless(context.Background(), time.Millisecond, 100)
	require.NoError(t, err)
	assert.True(t, h.rt.ExitRequested())
	assert.Less(t, h.rt.Status().Frame, uint64(100))
}

func TestWatcherWiredWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.Settings = filepath.Join(dir, "settings.yaml")
	cfg.Paths.DataDir = dir
	cfg.Paths.Manifest = filepath.Join(dir, "missing.hcl")

	rt, err := New(context.Background(), Options{Config: cfg, Watch: true})
	require.NoError(t, err)
	assert.NotNil(t, rt.watcher)
	assert.Zero(t, rt.Manifest().Len())
	require.NoError(t, rt.Shutdown(context.Background()))
	assert.FileExists(t, filepath.Join(dir, "audit.jsonl"))
}

func TestTickNeverWaitsOnAssetFetches(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths.Settings = filepath.Join(dir, "settings.yaml")
	cfg.Paths.DataDir = dir
	cfg.Timing.Fade = "16ms"
	cfg.Boot.SkipIntro = true

	manifest, err := assets.ParseManifest([]byte(`
bundle "lvl" {
  asset "bad" {}
  asset "slow" {}
}
`), "slow.hcl")
	require.NoError(t, err)

	const fetchTime = 400 * time.Millisecond
	var slowDone atomic.Bool
	fetcher := assets.FetcherFunc(func(ctx context.Context, ref assets.AssetRef) error {
		if ref == "bad" {
			return errors.New("corrupt")
		}
		// Ignores ctx, like a plain file read.
		time.Sleep(fetchTime)
		slowDone.Store(true)
		return nil
	})
	rt, err := New(context.Background(), Options{
		Config:   cfg,
		Fetcher:  fetcher,
		Manifest: manifest,
		Audit:    logging.NewNopAuditLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })

	var worst time.Duration
	tick := func() {
		begin := time.Now()
		rt.Tick(frame)
		worst = max(worst, time.Since(begin))
		time.Sleep(time.Millisecond)
	}

	tick()
	require.NoError(t, rt.StartGame("lvl"))
	deadline := time.Now().Add(3 * time.Second)
	for rt.Phase() != lifecycle.Error || rt.Status().Fade != fade.Idle {
		require.True(t, time.Now().Before(deadline), "timed out waiting for Error")
		tick()
	}
	assert.False(t, slowDone.Load(), "Error must be reached while the slow fetch is still running")

	// The retry starts a new batch while the old fetch is still in flight.
	require.NoError(t, rt.ReturnToMenu())
	for rt.Phase() != lifecycle.MainMenu || rt.Status().Fade != fade.Idle {
		require.True(t, time.Now().Before(deadline), "timed out waiting for MainMenu")
		tick()
	}
	require.NoError(t, rt.StartGame("lvl"))
	for i := 0; i < 5; i++ {
		tick()
	}

	assert.Less(t, worst, fetchTime/4, "a single tick waited on a fetch")
}

func TestShutdownFlushesAfterDeadline(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Boot.SkipIntro = true })
	h.rt.Tick(frame)
	require.NoError(t, h.rt.SetSetting(settings.KeyLanguage, "fr"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = h.rt.Shutdown(ctx)

	snap, err := settings.NewPersistence(h.cfg.Paths.Settings).Read()
	require.NoError(t, err)
	assert.Equal(t, "fr", snap.Language)
}
