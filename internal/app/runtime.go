// Package app assembles the lifecycle controller, fader, asset tracking and
// settings sync into one Runtime driven by a frame tick.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stagehand/internal/assets"
	"stagehand/internal/config"
	"stagehand/internal/events"
	"stagehand/internal/fade"
	"stagehand/internal/lifecycle"
	"stagehand/internal/logging"
	"stagehand/internal/settings"
)

// ErrSettingsHidden is returned when settings are edited from a phase with
// no settings surface.
var ErrSettingsHidden = errors.New("settings are not available in this phase")

// Options configures a Runtime. Zero members fall back to what Config
// describes.
type Options struct {
	Config     *config.Config
	Subsystems settings.Subsystems
	// Fetcher retrieves assets; defaults to a DirFetcher on the assets root.
	Fetcher assets.Fetcher
	// Manifest overrides loading the manifest file.
	Manifest *assets.Manifest
	// Audit receives one record per event; defaults to a file under the
	// data directory.
	Audit *logging.AuditLogger
	// Watch enables the settings file watcher.
	Watch bool
	// StartBundle is loaded when Loading is entered without StartGame,
	// as with a start-phase override. Defaults to the first manifest bundle.
	StartBundle string
}

// Runtime owns every lifecycle component. All methods belong to the tick
// goroutine.
type Runtime struct {
	cfg       *config.Config
	sessionID string

	queue    *events.Queue
	ctrl     *lifecycle.Controller
	fader    *fade.Fader
	manifest *assets.Manifest
	loader   *assets.Loader
	tracker  *assets.Tracker

	persistence *settings.Persistence
	settings    *settings.Sync
	watcher     *settings.Watcher
	loadReport  settings.LoadReport
	overlay     *Overlay

	audit     *logging.AuditLogger
	ownsAudit bool
	listeners []func(events.Event)

	ctx    context.Context
	cancel context.CancelFunc

	started     bool
	frame       uint64
	splashLeft  time.Duration
	startBundle string
	pendingTag  string
	activeTag   string
	activeID    assets.BundleID
	progress    assets.LoadProgress
	shutdown    bool
}

// New boots a runtime: settings are loaded and applied, the manifest is
// parsed and the controller is configured with the boot overrides. The
// first phase change happens on the first Tick.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	timer := logging.StartTimer(logging.CategoryBoot, "boot")
	defer timer.Stop()

	r := &Runtime{
		cfg:         cfg,
		sessionID:   uuid.NewString(),
		queue:       events.NewQueue(),
		startBundle: opts.StartBundle,
	}
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.ctrl = lifecycle.NewController(r.queue)
	overrides, err := cfg.BootOverrides()
	if err != nil {
		logging.BootWarn("ignoring boot overrides: %v", err)
	} else if err := r.ctrl.ApplyBoot(overrides); err != nil {
		return nil, err
	}
	r.fader = fade.New(r.ctrl)

	r.persistence = settings.NewPersistence(cfg.Paths.Settings)
	snap, report := r.persistence.Load()
	r.loadReport = report
	store := settings.NewStore(snap)
	r.settings = settings.NewSync(store, r.persistence, opts.Subsystems, r.queue, cfg.GetSettingsDebounce())
	r.settings.ApplyAll()

	if opts.Watch {
		w, err := settings.NewWatcher(cfg.Paths.Settings, r.persistence)
		if err != nil {
			logging.BootWarn("settings watcher unavailable: %v", err)
		} else if err := w.Start(r.ctx); err != nil {
			logging.BootWarn("settings watcher failed to start: %v", err)
			w.Stop()
		} else {
			r.watcher = w
			r.settings.Attach(w)
		}
	}

	r.manifest = opts.Manifest
	if r.manifest == nil {
		m, err := assets.LoadManifest(cfg.Paths.Manifest)
		switch {
		case err == nil:
			r.manifest = m
		case errors.Is(err, os.ErrNotExist):
			logging.BootWarn("no asset manifest at %s, starting with no bundles", cfg.Paths.Manifest)
			r.manifest = assets.EmptyManifest()
		default:
			r.cancel()
			r.stopWatcher()
			_ = r.settings.Flush()
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
	}
	if r.startBundle == "" {
		if tags := r.manifest.Tags(); len(tags) > 0 {
			r.startBundle = tags[0]
		}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &assets.DirFetcher{Root: cfg.Paths.AssetsRoot}
	}
	r.loader = assets.NewLoader(fetcher, cfg.GetWorkers())
	r.tracker = assets.NewTracker(r.loader, r.queue)

	r.audit = opts.Audit
	if r.audit == nil {
		a, err := logging.NewAuditLogger(cfg.Paths.DataDir)
		if err != nil {
			logging.BootWarn("audit trail disabled: %v", err)
			a = logging.NewNopAuditLogger()
		}
		r.audit = a
		r.ownsAudit = true
	}

	r.overlay = NewOverlay()
	r.ctrl.Subscribe(r.onPhaseChanged)

	r.audit.Record(logging.AuditSessionStart,
		zap.String("session", r.sessionID),
		zap.Bool("first_run", report.FirstRun),
		zap.Bool("settings_migrated", report.Migrated))
	logging.Boot("runtime ready (session %s, %d bundles)", r.sessionID, r.manifest.Len())
	return r, nil
}

// Subscribe registers fn for every event drained by Tick, after the
// controller has observed it.
func (r *Runtime) Subscribe(fn func(events.Event)) {
	r.listeners = append(r.listeners, fn)
}

// Tick advances the runtime by dt. Order within a tick: first-phase start,
// splash timer, bundle polling, settings sync, fader, then one drain of the
// event queue. Events raised while draining are seen on the next tick.
func (r *Runtime) Tick(dt time.Duration) {
	if r.shutdown {
		return
	}
	if dt < 0 {
		dt = 0
	}
	r.frame++
	if !r.started {
		r.started = true
		if _, err := r.ctrl.Start(); err != nil {
			logging.BootError("could not leave Booting: %v", err)
		}
	}

	switch r.ctrl.Current() {
	case lifecycle.Splash:
		r.tickSplash(dt)
	case lifecycle.Loading:
		r.tickLoading()
	}

	r.settings.Tick(dt)
	r.fader.Tick(dt)

	for _, e := range r.queue.Drain() {
		r.ctrl.Observe(e)
		r.overlay.Observe(e, r.settings.Store().Get())
		r.record(e)
		for _, fn := range r.listeners {
			fn(e)
		}
	}
}

func (r *Runtime) tickSplash(dt time.Duration) {
	if r.fader.Busy() {
		return
	}
	r.splashLeft -= dt
	if r.splashLeft <= 0 {
		r.fadeTo(lifecycle.MainMenu)
	}
}

func (r *Runtime) tickLoading() {
	if r.activeID == "" {
		r.beginLoad()
		return
	}
	p, err := r.tracker.Poll(r.activeID)
	if err != nil {
		logging.AssetsError("poll %s: %v", r.activeTag, err)
		return
	}
	r.progress = p
}

// beginLoad starts the bundle picked by StartGame, or the start bundle
// when Loading was entered directly.
func (r *Runtime) beginLoad() {
	tag := r.pendingTag
	if tag == "" {
		tag = r.startBundle
	}
	r.pendingTag = ""
	req, err := r.manifest.Request(tag)
	if err != nil {
		r.ctrl.Fail(fmt.Errorf("cannot load bundle %q: %w", tag, err))
		return
	}
	r.loader.Start(r.ctx, req)
	r.activeTag = tag
	r.activeID = r.tracker.Register(req)
	r.progress = assets.LoadProgress{Total: len(req.Assets)}
	r.ctrl.AwaitBundle(string(r.activeID))
	logging.Assets("loading bundle %s (%d assets) as %s", tag, len(req.Assets), r.activeID)
	r.tickLoading()
}

func (r *Runtime) onPhaseChanged(ev lifecycle.PhaseChanged) {
	if ev.New == lifecycle.Splash {
		r.splashLeft = r.cfg.GetSplashDuration()
	}
	if ev.Old == lifecycle.Loading && r.activeID != "" {
		if ev.New != lifecycle.InGame {
			// Stop outstanding fetches without waiting for them; failed or
			// cancelled assets are fetched again on the next attempt.
			r.loader.Cancel()
		}
		r.tracker.Release(r.activeID)
		r.activeID = ""
	}
	r.overlay.Rebuild(settings.SurfaceFor(ev.New), r.settings.Store().Get())
}

func (r *Runtime) record(e events.Event) {
	switch ev := e.(type) {
	case lifecycle.PhaseChanged:
		r.audit.Record(logging.AuditPhaseChanged, zap.String("old", ev.Old.String()), zap.String("new", ev.New.String()))
	case events.BundleProgress:
		r.audit.Record(logging.AuditBundleProgress, zap.String("bundle", r.activeTag), zap.Float64("fraction", ev.Fraction))
	case events.BundleReady:
		r.audit.Record(logging.AuditBundleReady, zap.String("bundle", ev.Bundle))
	case events.BundleLoadFailed:
		r.audit.Record(logging.AuditBundleLoadFailed, zap.String("bundle", ev.Bundle), zap.String("asset", ev.Asset))
	case events.SettingsApplied:
		r.audit.Record(logging.AuditSettingsApplied, zap.String("key", ev.Key))
	case events.SettingsPersisted:
		r.audit.Record(logging.AuditSettingsPersisted, zap.Bool("ok", ev.OK()), zap.Error(ev.Err))
	}
}

func (r *Runtime) fadeTo(target lifecycle.Phase) error {
	return r.fader.FadeTo(r.cfg.GetFadeDuration(), target)
}

// StartGame fades from the main menu into Loading for the bundle tagged tag.
func (r *Runtime) StartGame(tag string) error {
	if _, err := r.manifest.Request(tag); err != nil {
		return err
	}
	if cur := r.ctrl.Current(); !lifecycle.CanTransition(cur, lifecycle.Loading) || cur == lifecycle.Booting {
		return &lifecycle.InvalidTransitionError{From: cur, To: lifecycle.Loading}
	}
	if err := r.fadeTo(lifecycle.Loading); err != nil {
		return err
	}
	r.pendingTag = tag
	return nil
}

// SkipSplash ends the splash early.
func (r *Runtime) SkipSplash() error {
	if r.ctrl.Current() != lifecycle.Splash {
		return nil
	}
	r.splashLeft = 0
	if r.fader.Busy() {
		return nil
	}
	return r.fadeTo(lifecycle.MainMenu)
}

// Pause and Resume switch instantly; the overlay covers the scene.
func (r *Runtime) Pause() error  { return r.ctrl.RequestTransition(lifecycle.Paused) }
func (r *Runtime) Resume() error { return r.ctrl.RequestTransition(lifecycle.InGame) }

// ReturnToMenu fades to the main menu. From Loading it cancels the load;
// from Error it is the retry path.
func (r *Runtime) ReturnToMenu() error {
	cur := r.ctrl.Current()
	if !lifecycle.CanTransition(cur, lifecycle.MainMenu) {
		return &lifecycle.InvalidTransitionError{From: cur, To: lifecycle.MainMenu}
	}
	return r.fadeTo(lifecycle.MainMenu)
}

// Exit asks the process to terminate.
func (r *Runtime) Exit() { r.ctrl.RequestExit() }

// ExitRequested reports whether Exit was called.
func (r *Runtime) ExitRequested() bool { return r.ctrl.ExitRequested() }

// SetSetting changes one setting from the settings surface.
func (r *Runtime) SetSetting(key settings.Key, value any) error {
	if !settings.SurfaceFor(r.ctrl.Current()).Editable() {
		return fmt.Errorf("%w: %s", ErrSettingsHidden, r.ctrl.Current())
	}
	return r.settings.Set(key, value)
}

// ResetSettings restores defaults from the settings surface.
func (r *Runtime) ResetSettings() error {
	if !settings.SurfaceFor(r.ctrl.Current()).Editable() {
		return fmt.Errorf("%w: %s", ErrSettingsHidden, r.ctrl.Current())
	}
	r.settings.Reset()
	return nil
}

// Shutdown stops background work and writes unsaved settings. The settings
// flush always runs to completion; ctx only bounds the wait for asset
// workers that are still inside a fetch.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.shutdown {
		return nil
	}
	r.shutdown = true
	r.cancel()
	r.loader.Cancel()
	r.stopWatcher()

	err := r.settings.Flush()

	workers := make(chan struct{})
	go func() {
		r.loader.Wait()
		close(workers)
	}()
	select {
	case <-workers:
	case <-ctx.Done():
		logging.BootWarn("asset workers still busy at shutdown: %v", ctx.Err())
		if err == nil {
			err = fmt.Errorf("asset workers: %w", ctx.Err())
		}
	}

	// Flush pushes its result; record it before closing the trail.
	for _, e := range r.queue.Drain() {
		r.record(e)
	}
	r.audit.Record(logging.AuditSessionEnd, zap.String("session", r.sessionID), zap.Uint64("frames", r.frame))
	if r.ownsAudit {
		if cerr := r.audit.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	logging.Boot("runtime stopped after %d frames", r.frame)
	return err
}

func (r *Runtime) stopWatcher() {
	if r.watcher != nil {
		r.watcher.Stop()
		r.watcher = nil
	}
}
