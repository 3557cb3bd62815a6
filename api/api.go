// Package api is the client of the score server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/rtt"
	"github.com/rapidmidiex/rmxscore/server"
	"github.com/rapidmidiex/rmxscore/store"
	"github.com/rapidmidiex/rmxscore/wsmsg"
)

type (
	Client struct {
		baseURL string
		http    *http.Client
		rtt     *rtt.Recorder
		log     *log.Logger
	}

	// StatusError is a non-2xx response.
	StatusError struct {
		Code   int
		Detail string
	}
)

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server responded %d", e.Code)
	}
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Detail)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		rtt:     rtt.NewRecorder(rtt.DefaultWindow),
		log:     log.Default(),
	}
}

// RTT records the roundtrip time of every API request.
func (c *Client) RTT() *rtt.Recorder { return c.rtt }

func (c *Client) SetLogger(l *log.Logger) { c.log = l }

func (c *Client) List(ctx context.Context) ([]score.Document, error) {
	var docs []score.Document
	if err := c.do(ctx, http.MethodGet, "/api/scores/", nil, &docs); err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	return docs, nil
}

func (c *Client) Get(ctx context.Context, id string) (score.Document, error) {
	var doc score.Document
	if err := c.do(ctx, http.MethodGet, "/api/scores/"+url.PathEscape(id), nil, &doc); err != nil {
		return score.Document{}, fmt.Errorf("get score %s: %w", id, err)
	}
	return doc, nil
}

func (c *Client) Create(ctx context.Context, doc score.Document) (score.Document, error) {
	var created score.Document
	if err := c.do(ctx, http.MethodPost, "/api/scores/", doc, &created); err != nil {
		return score.Document{}, fmt.Errorf("create score: %w", err)
	}
	return created, nil
}

func (c *Client) Update(ctx context.Context, id string, p store.Patch) (score.Document, error) {
	var doc score.Document
	if err := c.do(ctx, http.MethodPut, "/api/scores/"+url.PathEscape(id), p, &doc); err != nil {
		return score.Document{}, fmt.Errorf("update score %s: %w", id, err)
	}
	return doc, nil
}

// Save creates doc if it has no ID yet and replaces it otherwise.
func (c *Client) Save(ctx context.Context, doc score.Document) (score.Document, error) {
	if doc.ID == "" {
		return c.Create(ctx, doc)
	}
	return c.Update(ctx, doc.ID, store.PatchFrom(doc))
}

// Play lists the pitches of the notes starting in [start, end).
func (c *Client) Play(ctx context.Context, id string, start, end float64) ([]string, error) {
	var res server.PlayResponse
	req := server.SegmentRequest{Start: start, End: end}
	if err := c.do(ctx, http.MethodPost, "/api/scores/"+url.PathEscape(id)+"/play", req, &res); err != nil {
		return nil, fmt.Errorf("play score %s: %w", id, err)
	}
	return res.Segment, nil
}

// Export asks the server to write a MIDI file and returns its URL.
func (c *Client) Export(ctx context.Context, id string, start, end float64) (string, error) {
	var res server.ExportResponse
	req := server.SegmentRequest{Start: start, End: end, Format: "mid"}
	if err := c.do(ctx, http.MethodPost, "/api/scores/"+url.PathEscape(id)+"/export", req, &res); err != nil {
		return "", fmt.Errorf("export score %s: %w", id, err)
	}
	return c.baseURL + res.FilePath, nil
}

// Download copies an exported file to w.
func (c *Client) Download(ctx context.Context, fileURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("download: %w", statusError(res))
	}
	_, err = io.Copy(w, res.Body)
	return err
}

// Watch streams the saved versions of a score until ctx is done or the
// connection drops. Updates saved after Watch returns are delivered. The channel is closed when watching ends.
func (c *Client) Watch(ctx context.Context, id string) (<-chan score.Document, error) {
	wsURL, err := c.wsURL("/api/scores/" + url.PathEscape(id) + "/live")
	if err != nil {
		return nil, err
	}
	conn, res, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if res != nil && res.StatusCode >= 400 {
			return nil, fmt.Errorf("watch score %s: %w", id, statusError(res))
		}
		return nil, fmt.Errorf("watch score %s: %w", id, err)
	}

	// The server greets once the watcher is registered.
	var hello wsmsg.Envelope
	if err := conn.ReadJSON(&hello); err != nil || hello.Typ != wsmsg.CONNECT {
		conn.Close()
		if err == nil {
			err = fmt.Errorf("expected connect message")
		}
		return nil, fmt.Errorf("watch score %s: %w", id, err)
	}

	out := make(chan score.Document)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var env wsmsg.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					c.log.Printf("watch %s: %v", id, err)
				}
				return
			}
			if env.Typ != wsmsg.UPDATED {
				continue
			}
			var msg wsmsg.UpdatedMsg
			if err := env.Unwrap(&msg); err != nil {
				c.log.Printf("watch %s: %v", id, err)
				continue
			}
			select {
			case out <- msg.Document:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) wsURL(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	c.rtt.Observe(time.Since(start))
	if res.StatusCode >= 400 {
		return statusError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func statusError(res *http.Response) error {
	var body server.ErrorResponse
	json.NewDecoder(res.Body).Decode(&body)
	return &StatusError{Code: res.StatusCode, Detail: body.Detail}
}
