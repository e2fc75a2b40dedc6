// internal/client/client.go
//
// HTTP client for the game endpoints. It satisfies round.Provider,
// round.Scorer and suggest.Searcher, so the terminal player (and tests)
// can drive a round.Controller against a running server.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/round"
)

// StatusError is a non-2xx response. Code is the server's error code when
// the body carried one.
type StatusError struct {
	Status int
	Code   string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// Client talks to one server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for baseURL with a 10s request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RandomCar fetches the next record. Client errors (4xx) are marked
// permanent so the controller's backoff does not retry them.
func (c *Client) RandomCar(ctx context.Context) (car.Car, error) {
	var out car.Car
	err := c.do(ctx, http.MethodGet, "/api/random-car", nil, &out, false)
	var se *StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		return car.Car{}, backoff.Permanent(err)
	}
	return out, err
}

// ScoreGuess posts a guess with the truth record echoed back (ticket
// included). The reply is returned undecoded into numbers so the controller
// can normalize it.
func (c *Client) ScoreGuess(ctx context.Context, price float64, model string, truth car.Car) (round.Reply, error) {
	body := map[string]any{
		"guessPrice": price,
		"guessModel": model,
		"correct":    truth,
	}
	var out round.Reply
	if err := c.do(ctx, http.MethodPost, "/api/guess", body, &out, true); err != nil {
		return round.Reply{}, err
	}
	return out, nil
}

// SearchTitles asks the server for titles matching query.
func (c *Client) SearchTitles(ctx context.Context, query string) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/api/search-models?q="+url.QueryEscape(query), nil, &out, false); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, useNumber bool) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil {
			se.Code = e.Error
		}
		return se
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if useNumber {
		dec.UseNumber()
	}
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
