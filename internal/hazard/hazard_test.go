package hazard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	notifications []string
}

func (f *fakeNotifier) Notify(_ context.Context, level, message string) error {
	f.notifications = append(f.notifications, level+": "+message)
	return nil
}

type fakeEvents struct {
	events []string
}

func (f *fakeEvents) Emit(_ context.Context, eventType string) error {
	f.events = append(f.events, eventType)
	return nil
}

func TestNotifyEscalatesOnFirstOccurrence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hazard.json")
	n := &fakeNotifier{}
	e := &fakeEvents{}
	r := New(path, n, e)

	latched, err := r.IsLatched()
	require.NoError(t, err)
	assert.False(t, latched)

	require.NoError(t, r.Notify(context.Background(), "leak detected"))
	assert.Len(t, n.notifications, 1)
	assert.Len(t, e.events, 1)

	latched, err = r.IsLatched()
	require.NoError(t, err)
	assert.True(t, latched)
}

func TestNotifyRateLimitsRepeatedEscalation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hazard.json")
	n := &fakeNotifier{}
	r := New(path, n, &fakeEvents{})

	require.NoError(t, r.Notify(context.Background(), "leak detected"))
	require.NoError(t, r.Notify(context.Background(), "leak detected"))
	require.NoError(t, r.Notify(context.Background(), "leak detected"))

	assert.Len(t, n.notifications, 1, "repeated notifications within the window must not re-escalate")
}

func TestClearRemovesLatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hazard.json")
	r := New(path, &fakeNotifier{}, &fakeEvents{})

	require.NoError(t, r.Register("test"))
	latched, err := r.IsLatched()
	require.NoError(t, err)
	assert.True(t, latched)

	require.NoError(t, r.Clear())
	latched, err = r.IsLatched()
	require.NoError(t, err)
	assert.False(t, latched)
}
