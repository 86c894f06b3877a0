package generator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/workflow"
)

func waitOutcome(t *testing.T, outcomes <-chan RunOutcome) RunOutcome {
	t.Helper()
	select {
	case out, ok := <-outcomes:
		require.True(t, ok, "outcome channel closed")
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a run")
		return RunOutcome{}
	}
}

func TestWatcher_RegeneratesOnChange(t *testing.T) {
	root := workspace(t, shopDoc, "")
	g := newGenerator(t, root, func(c *config.Config) {
		c.Watch.Debounce = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := g.NewWatcher(Request{})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	updated := strings.Replace(shopDoc, "Find books by title.", "Find books by title or author.", 1)
	writeFile(t, filepath.Join(root, workflow.DefaultPrimaryInput), updated)

	out := waitOutcome(t, w.Outcomes())
	require.NoError(t, out.Err)
	assert.Equal(t, []string{workflow.DefaultPrimaryInput}, out.Trigger)
	require.NotNil(t, out.Result)
	assert.Equal(t, 10, out.Result.Written)
	assert.Contains(t, readFile(t, filepath.Join(root, ".semspec/specs/004-search/spec.md")), "or author")

	// Rewriting identical content does not trigger a run.
	writeFile(t, filepath.Join(root, workflow.DefaultPrimaryInput), updated)
	select {
	case out := <-w.Outcomes():
		t.Fatalf("unexpected run triggered by %v", out.Trigger)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Zero(t, w.DroppedOutcomes())
}

func TestWatcher_ReportsFailures(t *testing.T) {
	root := workspace(t, shopDoc, "")
	g := newGenerator(t, root, func(c *config.Config) {
		c.Watch.Debounce = 20 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := g.NewWatcher(Request{})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	writeFile(t, filepath.Join(root, workflow.DefaultPrimaryInput), "no structure at all\n")

	out := waitOutcome(t, w.Outcomes())
	require.Error(t, out.Err)
	assert.Nil(t, out.Result)
}

func TestWatcher_ClosesOutcomesOnCancel(t *testing.T) {
	root := workspace(t, shopDoc, "")
	g := newGenerator(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	w, err := g.NewWatcher(Request{})
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	cancel()
	select {
	case _, ok := <-w.Outcomes():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("outcome channel not closed")
	}
}
