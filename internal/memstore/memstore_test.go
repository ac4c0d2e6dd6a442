package memstore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/store/storetest"
	"github.com/roach88/infobase/internal/thing"
)

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock store.Clock) store.Store {
		return New(WithClock(clock))
	})
}

func TestDocContract(t *testing.T) {
	storetest.RunDocs(t, func(t *testing.T) store.DocStore {
		return New()
	})
}

func TestWrite_ReturnedChangeIsCopy(t *testing.T) {
	s := New()
	th := thing.New(nil, "/a")
	require.NoError(t, th.Set("n", 1, ir.DatatypeInt))

	c, err := s.Write(context.Background(), store.WriteRequest{
		Mutations: []store.Mutation{{Key: "/a", Thing: th}},
	})
	require.NoError(t, err)
	c.Changes[0].Revision = 99

	stored, err := s.GetChange(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Changes[0].Revision)
}

func TestWrite_CallerThingNotAliased(t *testing.T) {
	s := New()
	th := thing.New(nil, "/a")
	require.NoError(t, th.Set("title", "one", ir.DatatypeString))
	_, err := s.Write(context.Background(), store.WriteRequest{
		Mutations: []store.Mutation{{Key: "/a", Thing: th}},
	})
	require.NoError(t, err)

	require.NoError(t, th.Set("title", "changed", ir.DatatypeString))
	got, err := s.Get(context.Background(), "/a")
	require.NoError(t, err)
	title, err := got.Field(context.Background(), "title")
	require.NoError(t, err)
	assert.Equal(t, "one", title)
}

func TestWrite_Logs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := New(WithLogger(logger))

	_, err := s.Write(context.Background(), store.WriteRequest{
		Mutations: []store.Mutation{{Key: "/a", Thing: thing.New(nil, "/a")}},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "write committed")
}

func TestContextCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "/a")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.NextValue(ctx, "n")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCounter(t *testing.T) {
	cs := newCounters()
	assert.Nil(t, cs.get("a", false))

	c := cs.get("a", true)
	assert.Equal(t, int64(1), c.Next())
	assert.Same(t, c, cs.get("a", false))
	assert.Equal(t, int64(1), c.Current())
}
