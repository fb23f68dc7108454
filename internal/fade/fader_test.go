package fade

import (
	"errors"
	"testing"
	"time"

	"stagehand/internal/events"
	"stagehand/internal/lifecycle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deferredController accepts requests but only switches phase when commit is
// called, like a controller whose phase content spawns a frame later.
type deferredController struct {
	current  lifecycle.Phase
	pending  *lifecycle.Phase
	requests []lifecycle.Phase
	reject   bool
}

func (d *deferredController) RequestTransition(target lifecycle.Phase) error {
	d.requests = append(d.requests, target)
	if d.reject || !lifecycle.CanTransition(d.current, target) {
		return &lifecycle.InvalidTransitionError{From: d.current, To: target}
	}
	d.pending = &target
	return nil
}

func (d *deferredController) Current() lifecycle.Phase { return d.current }

func (d *deferredController) commit() {
	if d.pending != nil {
		d.current = *d.pending
		d.pending = nil
	}
}

const frame = 16 * time.Millisecond

func TestFadeToWaitsForPhaseConfirmation(t *testing.T) {
	ctrl := &deferredController{current: lifecycle.Splash}
	f := New(ctrl)

	require.NoError(t, f.FadeTo(300*time.Millisecond, lifecycle.MainMenu))
	assert.Equal(t, FadingOut, f.State())

	// 18 frames = 288ms: still fading out, nothing requested yet.
	for i := 0; i < 18; i++ {
		f.Tick(frame)
	}
	assert.Equal(t, FadingOut, f.State())
	assert.Empty(t, ctrl.requests)

	f.Tick(frame) // 304ms
	assert.Equal(t, AwaitingPhaseChange, f.State())
	assert.Equal(t, []lifecycle.Phase{lifecycle.MainMenu}, ctrl.requests)
	assert.Equal(t, 1.0, f.Alpha())

	// Controller has not committed yet: the fader must keep waiting.
	for i := 0; i < 5; i++ {
		f.Tick(frame)
		assert.Equal(t, AwaitingPhaseChange, f.State())
	}

	ctrl.commit()
	f.Tick(frame)
	assert.Equal(t, FadingIn, f.State())
	assert.Len(t, ctrl.requests, 1, "transition requested exactly once")

	for i := 0; i < 19; i++ {
		f.Tick(frame)
	}
	assert.Equal(t, Idle, f.State())
	assert.Equal(t, 0.0, f.Alpha())
	assert.Len(t, ctrl.requests, 1)
}

func TestFadeWithRealController(t *testing.T) {
	q := events.NewQueue()
	ctrl := lifecycle.NewController(q)
	_, err := ctrl.Start()
	require.NoError(t, err)
	require.Equal(t, lifecycle.Splash, ctrl.Current())

	f := New(ctrl)
	require.NoError(t, f.FadeTo(300*time.Millisecond, lifecycle.MainMenu))

	var sawFadingInBeforeMenu bool
	for i := 0; i < 60 && f.State() != Idle; i++ {
		f.Tick(frame)
		if f.State() == FadingIn && ctrl.Current() != lifecycle.MainMenu {
			sawFadingInBeforeMenu = true
		}
	}
	assert.False(t, sawFadingInBeforeMenu)
	assert.Equal(t, Idle, f.State())
	assert.Equal(t, lifecycle.MainMenu, ctrl.Current())
}

func TestFadeToRejectedWhileBusy(t *testing.T) {
	f := New(&deferredController{current: lifecycle.MainMenu})
	require.NoError(t, f.FadeTo(100*time.Millisecond, lifecycle.Loading))
	err := f.FadeTo(100*time.Millisecond, lifecycle.Error)
	assert.ErrorIs(t, err, ErrFaderBusy)
	assert.Equal(t, lifecycle.Loading, f.Target())
}

func TestRejectedTransitionFadesBackIn(t *testing.T) {
	ctrl := &deferredController{current: lifecycle.MainMenu}
	f := New(ctrl)
	require.NoError(t, f.FadeTo(50*time.Millisecond, lifecycle.Paused))

	for i := 0; i < 4; i++ {
		f.Tick(frame)
	}
	assert.Equal(t, FadingIn, f.State())
	assert.ErrorIs(t, f.LastRejection(), lifecycle.ErrInvalidTransition)

	for i := 0; i < 4; i++ {
		f.Tick(frame)
	}
	assert.Equal(t, Idle, f.State())
	assert.Equal(t, lifecycle.MainMenu, ctrl.Current())
}

func TestErrorDuringFadeOutIsNotLeft(t *testing.T) {
	ctrl := lifecycle.NewController(events.NewQueue())
	require.NoError(t, ctrl.ApplyBoot(lifecycle.BootOverrides{SkipIntro: true}))
	_, err := ctrl.Start()
	require.NoError(t, err)
	require.NoError(t, ctrl.RequestTransition(lifecycle.Loading))

	f := New(ctrl)
	require.NoError(t, f.FadeTo(100*time.Millisecond, lifecycle.MainMenu))
	f.Tick(frame)
	ctrl.Fail(errors.New("required asset failed"))

	for i := 0; i < 20 && f.State() != Idle; i++ {
		f.Tick(frame)
		assert.Equal(t, lifecycle.Error, ctrl.Current())
	}
	assert.Equal(t, Idle, f.State())
	assert.Equal(t, lifecycle.Error, ctrl.Current())
	assert.ErrorIs(t, f.LastRejection(), ErrPreempted)
}

func TestFadeOutOfErrorStillTransitions(t *testing.T) {
	ctrl := lifecycle.NewController(events.NewQueue())
	require.NoError(t, ctrl.ApplyBoot(lifecycle.BootOverrides{SkipIntro: true}))
	_, err := ctrl.Start()
	require.NoError(t, err)
	ctrl.Fail(errors.New("boom"))

	f := New(ctrl)
	require.NoError(t, f.FadeTo(50*time.Millisecond, lifecycle.MainMenu))
	for i := 0; i < 20 && f.State() != Idle; i++ {
		f.Tick(frame)
	}
	assert.Equal(t, lifecycle.MainMenu, ctrl.Current())
	assert.NoError(t, f.LastRejection())
}

func TestZeroDurationFadeStillHandshakes(t *testing.T) {
	ctrl := &deferredController{current: lifecycle.MainMenu}
	f := New(ctrl)
	require.NoError(t, f.FadeTo(0, lifecycle.Loading))

	f.Tick(frame)
	assert.Equal(t, AwaitingPhaseChange, f.State())
	f.Tick(frame)
	assert.Equal(t, AwaitingPhaseChange, f.State())

	ctrl.commit()
	f.Tick(frame)
	assert.Equal(t, FadingIn, f.State())
	f.Tick(frame)
	assert.Equal(t, Idle, f.State())
}

func TestAlphaRisesDuringFadeOut(t *testing.T) {
	f := New(&deferredController{current: lifecycle.MainMenu})
	assert.Equal(t, 0.0, f.Alpha())
	require.NoError(t, f.FadeTo(100*time.Millisecond, lifecycle.Loading))
	f.Tick(50 * time.Millisecond)
	assert.InDelta(t, 0.5, f.Alpha(), 1e-9)
}
