package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/server"
	"github.com/rapidmidiex/rmxscore/store"
	"github.com/rapidmidiex/rmxscore/wsmsg"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := server.New(server.Options{
		Store:          store.NewMemory(),
		ExportDir:      t.TempDir(),
		AllowedOrigins: []string{"http://localhost:3000"},
		Debounce:       100 * time.Millisecond,
		Logger:         log.New(io.Discard, "", 0),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&v))
	return v
}

func ode() score.Document {
	c := score.NewNote(score.NewPitch(score.C, 4), score.Quarter)
	g := score.NewNote(score.NewPitch(score.G, 4), score.Half)
	return score.Document{
		Title:         "Ode",
		TimeSignature: score.FourFour,
		Tempo:         120,
		Notes:         []score.Note{c, g, c, score.NewNote(score.Rest, score.Quarter), g},
	}
}

func create(t *testing.T, ts *httptest.Server) score.Document {
	t.Helper()
	res := do(t, http.MethodPost, ts.URL+"/api/scores/", ode())
	require.Equal(t, http.StatusCreated, res.StatusCode)
	return decode[score.Document](t, res)
}

func TestScores(t *testing.T) {
	ts := newServer(t)

	t.Run("root greets", func(t *testing.T) {
		res := do(t, http.MethodGet, ts.URL+"/", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Contains(t, decode[map[string]string](t, res)["message"], "Welcome")
	})

	created := create(t, ts)

	t.Run("created scores can be read back", func(t *testing.T) {
		require.NotEmpty(t, created.ID)
		res := do(t, http.MethodGet, ts.URL+"/api/scores/"+created.ID, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, created, decode[score.Document](t, res))

		res = do(t, http.MethodGet, ts.URL+"/api/scores/", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, []score.Document{created}, decode[[]score.Document](t, res))
	})

	t.Run("unknown scores are 404", func(t *testing.T) {
		res := do(t, http.MethodGet, ts.URL+"/api/scores/missing", nil)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
		require.Equal(t, "Score not found", decode[server.ErrorResponse](t, res).Detail)
	})

	t.Run("malformed and oversized scores are rejected", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/scores/", strings.NewReader(`{"notes":[{"pitch":"h/4","duration":"q"}]}`))
		require.NoError(t, err)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer res.Body.Close()
		require.Equal(t, http.StatusBadRequest, res.StatusCode)

		big := ode()
		big.Notes = make([]score.Note, 4*score.MaxMeasures+1)
		res = do(t, http.MethodPost, ts.URL+"/api/scores/", big)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.Equal(t, score.ErrMeasureLimit.Error(), decode[server.ErrorResponse](t, res).Detail)
	})

	t.Run("update replaces only the given fields", func(t *testing.T) {
		res := do(t, http.MethodPut, ts.URL+"/api/scores/"+created.ID, map[string]any{"title": "Joy"})
		require.Equal(t, http.StatusOK, res.StatusCode)
		got := decode[score.Document](t, res)
		require.Equal(t, "Joy", got.Title)
		require.Equal(t, created.Notes, got.Notes)

		res = do(t, http.MethodPut, ts.URL+"/api/scores/missing", map[string]any{"title": "Joy"})
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestUpdateMeasureLimit(t *testing.T) {
	ts := newServer(t)

	doc := score.New().Document()
	for i := 0; i < 4*score.MaxMeasures; i++ {
		doc.Notes = append(doc.Notes, score.NewNote(score.NewPitch(score.C, 4), score.Quarter))
	}
	res := do(t, http.MethodPost, ts.URL+"/api/scores/", doc)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := decode[score.Document](t, res)

	t.Run("a time signature that needs more measures is rejected", func(t *testing.T) {
		res := do(t, http.MethodPut, ts.URL+"/api/scores/"+created.ID, map[string]any{"timeSignature": "2/4"})
		require.Equal(t, http.StatusBadRequest, res.StatusCode)

		res = do(t, http.MethodGet, ts.URL+"/api/scores/"+created.ID, nil)
		got := decode[score.Document](t, res)
		require.Equal(t, score.FourFour, got.TimeSignature)
		require.Len(t, got.Notes, 4*score.MaxMeasures)
	})

	t.Run("an empty note list clears the score", func(t *testing.T) {
		res := do(t, http.MethodPut, ts.URL+"/api/scores/"+created.ID, map[string]any{"notes": []score.Note{}})
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Empty(t, decode[score.Document](t, res).Notes)
	})
}

func TestPlay(t *testing.T) {
	ts := newServer(t)
	doc := create(t, ts)

	res := do(t, http.MethodPost, ts.URL+"/api/scores/"+doc.ID+"/play", server.SegmentRequest{Start: 1, End: 4})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []string{"g/4", "c/4"}, decode[server.PlayResponse](t, res).Segment)

	res = do(t, http.MethodPost, ts.URL+"/api/scores/"+doc.ID+"/play", server.SegmentRequest{})
	require.Equal(t, []string{"c/4", "g/4", "c/4", "r", "g/4"}, decode[server.PlayResponse](t, res).Segment)

	res = do(t, http.MethodPost, ts.URL+"/api/scores/"+doc.ID+"/play", server.SegmentRequest{Start: 3, End: 1})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestExport(t *testing.T) {
	ts := newServer(t)
	doc := create(t, ts)

	res := do(t, http.MethodPost, ts.URL+"/api/scores/"+doc.ID+"/export", server.SegmentRequest{Format: "mid"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	path := decode[server.ExportResponse](t, res).FilePath
	require.True(t, strings.HasPrefix(path, "/exports/"+doc.ID), path)
	require.True(t, strings.HasSuffix(path, ".mid"), path)

	res = do(t, http.MethodGet, ts.URL+path, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, []byte("MThd"), data[:4])

	res = do(t, http.MethodPost, ts.URL+"/api/scores/"+doc.ID+"/export", server.SegmentRequest{Format: "mp3"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCORS(t *testing.T) {
	ts := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/scores/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, "http://localhost:3000", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestLive(t *testing.T) {
	ts := newServer(t)
	doc := create(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/scores/" + doc.ID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello wsmsg.Envelope
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, wsmsg.CONNECT, hello.Typ)
	require.Equal(t, doc.ID, hello.ScoreID)

	for _, title := range []string{"First", "Second"} {
		res := do(t, http.MethodPut, ts.URL+"/api/scores/"+doc.ID, map[string]any{"title": title})
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	var env wsmsg.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	require.Equal(t, wsmsg.UPDATED, env.Typ)
	var msg wsmsg.UpdatedMsg
	require.NoError(t, env.Unwrap(&msg))
	require.Equal(t, "Second", msg.Document.Title, "updates are coalesced")

	t.Run("unknown scores cannot be watched", func(t *testing.T) {
		_, res, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/scores/missing/live", nil)
		require.Error(t, err)
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
