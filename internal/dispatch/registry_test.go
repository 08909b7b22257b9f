package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vsdcard/internal/catalog"
	"github.com/zjrosen/vsdcard/internal/executor"
	"github.com/zjrosen/vsdcard/internal/motion"
	"github.com/zjrosen/vsdcard/internal/pause"
)

func newCard(t *testing.T, name string) *Dispatcher {
	t.Helper()
	return New(Config{Name: name}, catalog.New(t.TempDir()), executor.New(), pause.New(motion.NewSimulated(), nil))
}

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry()
	d := newCard(t, "left")
	require.NoError(t, r.Add(d))

	got, err := r.Get("left")
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = r.Get("right")
	require.ErrorIs(t, err, ErrCardNotFound)
}

func TestRegistry_AddRejectsDuplicatesAndNil(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(newCard(t, "left")))
	require.ErrorIs(t, r.Add(newCard(t, "left")), ErrDuplicateCard)
	require.ErrorIs(t, r.Add(nil), ErrNilCard)
}

func TestRegistry_DefaultName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(newCard(t, "")))
	assert.Equal(t, []string{DefaultName}, r.Names())
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Add(newCard(t, n)))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	d := newCard(t, "left")
	require.NoError(t, r.Add(d))

	got, err := r.Remove("left")
	require.NoError(t, err)
	assert.Same(t, d, got)
	assert.Empty(t, r.Names())

	_, err = r.Remove("left")
	require.ErrorIs(t, err, ErrCardNotFound)
}

func TestRegistry_CloseClosesEveryCard(t *testing.T) {
	r := NewRegistry()
	a, b := newCard(t, "a"), newCard(t, "b")
	require.NoError(t, r.Add(a))
	require.NoError(t, r.Add(b))

	subA := a.Subscribe(context.Background())
	subB := b.Subscribe(context.Background())

	require.NoError(t, r.Close(context.Background()))
	assert.Empty(t, r.Names())

	// Closing a card closes its event stream.
	for _, sub := range []<-chan struct{}{drained(subA), drained(subB)} {
		_, open := <-sub
		assert.False(t, open)
	}
}

func drained[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		for range ch {
		}
		close(out)
	}()
	return out
}
