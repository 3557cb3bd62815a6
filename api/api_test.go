package api_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxscore/api"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/server"
	"github.com/rapidmidiex/rmxscore/store"
)

func newClient(t *testing.T) *api.Client {
	t.Helper()
	srv := server.New(server.Options{
		Store:          store.NewMemory(),
		ExportDir:      t.TempDir(),
		AllowedOrigins: []string{"*"},
		Debounce:       10 * time.Millisecond,
		Logger:         log.New(io.Discard, "", 0),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return api.New(ts.URL + "/")
}

func scale() score.Document {
	doc := score.New().Document()
	for _, l := range []score.Letter{score.C, score.D, score.E, score.F} {
		doc.Notes = append(doc.Notes, score.NewNote(score.NewPitch(l, 4), score.Quarter))
	}
	return doc
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	docs, err := c.List(ctx)
	require.NoError(t, err)
	require.Empty(t, docs)

	saved, err := c.Save(ctx, scale())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	saved.Title = "Scale"
	saved.Notes = saved.Notes[:2]
	resaved, err := c.Save(ctx, saved)
	require.NoError(t, err)
	require.Equal(t, saved, resaved)

	got, err := c.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Equal(t, resaved, got)

	docs, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	segment, err := c.Play(ctx, saved.ID, 1, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"d/4"}, segment)

	fileURL, err := c.Export(ctx, saved.ID, 0, 0)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, c.Download(ctx, fileURL, &buf))
	require.Equal(t, []byte("MThd"), buf.Bytes()[:4])

	stats := c.RTT().Stats()
	require.GreaterOrEqual(t, stats.Count, 7, "every request is timed")
	require.Positive(t, stats.Max)
}

func TestSaveEmptied(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	saved, err := c.Save(ctx, scale())
	require.NoError(t, err)
	require.Len(t, saved.Notes, 4)

	saved.Notes = nil
	resaved, err := c.Save(ctx, saved)
	require.NoError(t, err)
	require.Empty(t, resaved.Notes)

	got, err := c.Get(ctx, saved.ID)
	require.NoError(t, err)
	require.Empty(t, got.Notes, "deleting every note survives a reload")
}

func TestClientNotFound(t *testing.T) {
	c := newClient(t)
	_, err := c.Get(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, api.IsNotFound(err))

	_, err = c.Watch(context.Background(), "missing")
	require.True(t, api.IsNotFound(err))
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := newClient(t)

	saved, err := c.Create(ctx, scale())
	require.NoError(t, err)

	updates, err := c.Watch(ctx, saved.ID)
	require.NoError(t, err)

	title := "Live"
	_, err = c.Update(ctx, saved.ID, store.Patch{Title: &title})
	require.NoError(t, err)

	select {
	case doc := <-updates:
		require.Equal(t, "Live", doc.Title)
		require.Equal(t, saved.Notes, doc.Notes)
	case <-ctx.Done():
		t.Fatal("no update received")
	}

	cancel()
	for range updates {
	}
}
