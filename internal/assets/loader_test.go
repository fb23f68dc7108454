package assets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"stagehand/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoaderLoadsFromDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tex"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tex", "ground.png"), []byte("png!"), 0644))

	fetcher := &DirFetcher{Root: root}
	l := NewLoader(fetcher, 2)
	req := BundleRequest{Tag: "b", Assets: []AssetSpec{
		{Ref: "tex/ground.png", Required: true},
		{Ref: "tex/missing.png", Required: false},
		{Ref: "../escape.png", Required: false},
	}}
	l.Start(context.Background(), req)
	l.Wait()

	assert.Equal(t, Loaded, l.Status("tex/ground.png"))
	assert.Equal(t, Failed, l.Status("tex/missing.png"))
	assert.Equal(t, Failed, l.Status("../escape.png"))
	assert.Equal(t, NotLoaded, l.Status("never/requested"))
	size, ok := fetcher.Size("tex/ground.png")
	require.True(t, ok)
	assert.Equal(t, 4, size)
}

func TestLoaderFeedsTrackerWithoutBlocking(t *testing.T) {
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, ref AssetRef) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		if ref == "bad" {
			return errors.New("corrupt")
		}
		return nil
	})
	l := NewLoader(fetcher, 4)
	q := events.NewQueue()
	tr := NewTracker(l, q)
	req := BundleRequest{Tag: "b", Assets: []AssetSpec{
		{Ref: "a", Required: true},
		{Ref: "bad", Required: false},
	}}
	id := tr.Register(req)
	l.Start(context.Background(), req)

	// Workers are parked: polling sees Loading and returns at once.
	p, err := tr.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Loaded)
	assert.Equal(t, Loading, l.Status("a"))

	close(release)
	l.Wait()

	p, err = tr.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Loaded)
	assert.True(t, tr.Ready(id))
}

func TestLoaderCancel(t *testing.T) {
	var started atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, ref AssetRef) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	})
	l := NewLoader(fetcher, 1)
	req := BundleRequest{Tag: "b", Assets: []AssetSpec{{Ref: "a", Required: true}, {Ref: "b", Required: true}}}
	l.Start(context.Background(), req)

	require.Eventually(t, func() bool { return started.Load() == 1 }, time.Second, 5*time.Millisecond)
	l.Cancel()

	assert.Equal(t, NotLoaded, l.Status("a"))
	assert.Equal(t, NotLoaded, l.Status("b"))
	l.Wait()
	assert.Equal(t, NotLoaded, l.Status("a"))
	assert.Equal(t, int32(1), started.Load(), "queued fetch must not start after cancel")
}

func TestLoaderCancelDoesNotWaitForFetches(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, ref AssetRef) error {
		close(started)
		<-release // ignores ctx, like a plain file read
		return nil
	})
	l := NewLoader(fetcher, 1)
	l.Start(context.Background(), BundleRequest{Tag: "b", Assets: []AssetSpec{{Ref: "a", Required: true}}})
	<-started

	begin := time.Now()
	l.Cancel()
	assert.Less(t, time.Since(begin), 100*time.Millisecond)
	assert.Equal(t, NotLoaded, l.Status("a"))

	close(release)
	l.Wait()
	assert.Equal(t, NotLoaded, l.Status("a"), "result of a cancelled batch is dropped")
}

func TestLoaderDropsResultsOfSupersededBatch(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	firstStarted := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, ref AssetRef) error {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-release
			return errors.New("stale failure")
		}
		return nil
	})
	l := NewLoader(fetcher, 2)
	req := BundleRequest{Tag: "b", Assets: []AssetSpec{{Ref: "a", Required: true}}}

	l.Start(context.Background(), req)
	<-firstStarted
	l.Start(context.Background(), req)
	require.Eventually(t, func() bool { return l.Status("a") == Loaded }, time.Second, time.Millisecond)

	close(release)
	l.Wait()
	assert.Equal(t, Loaded, l.Status("a"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoaderRetryAfterForget(t *testing.T) {
	var calls atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, ref AssetRef) error {
		if calls.Add(1) == 1 {
			return errors.New("flaky")
		}
		return nil
	})
	l := NewLoader(fetcher, 1)
	req := BundleRequest{Tag: "b", Assets: []AssetSpec{{Ref: "a", Required: true}}}

	l.Start(context.Background(), req)
	l.Wait()
	assert.Equal(t, Failed, l.Status("a"))

	l.Forget(req)
	assert.Equal(t, NotLoaded, l.Status("a"))
	l.Start(context.Background(), req)
	l.Wait()
	assert.Equal(t, Loaded, l.Status("a"))

	// Loaded assets are not fetched again.
	l.Start(context.Background(), req)
	l.Wait()
	assert.Equal(t, int32(2), calls.Load())
}
