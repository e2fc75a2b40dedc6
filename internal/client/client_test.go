package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/catalog"
	"github.com/robalobadob/carguess/internal/httpserver"
	"github.com/robalobadob/carguess/internal/round"
	"github.com/robalobadob/carguess/internal/rounds"
	"github.com/robalobadob/carguess/internal/suggest"
)

var fleet = []car.Car{
	{ID: "e90", Title: "BMW 3 серии (E90)", Price: car.Num(900_000)},
	{ID: "x5", Title: "BMW X5", Price: car.Num(3_000_000)},
}

// startServer runs a ticketing server that withholds answers and counts
// search requests.
func startServer(t *testing.T, cars ...car.Car) (*Client, *atomic.Int32) {
	t.Helper()
	h := httpserver.New(httpserver.Config{
		Catalog: catalog.NewMemory(cars...),
		Tickets: rounds.NewIssuer("client-test", time.Hour, nil),
		Ledger:  rounds.NewMemoryLedger(),
		Logger:  zerolog.Nop(),
	}).Handler()

	var searches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/search-models" {
			searches.Add(1)
		}
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL), &searches
}

func TestFullSession(t *testing.T) {
	c, _ := startServer(t, fleet...)
	ctx := context.Background()
	ctl := round.New(c, c)

	if err := ctl.Start(ctx); err != nil {
		t.Fatal(err)
	}
	total := 0
	for i := 1; i <= round.TotalRounds; i++ {
		s := ctl.Snapshot()
		if s.State != round.AwaitingGuess || s.Round != i {
			t.Fatalf("round %d: snapshot %+v", i, s)
		}
		if s.Car.Title != "" || s.Car.Ticket == "" {
			t.Fatalf("round %d: expected a redacted, ticketed record, got %+v", i, s.Car)
		}

		ctl.SetPrice("900 000 ₽")
		ctl.SetModel("BMW")
		if err := ctl.Submit(ctx); err != nil {
			t.Fatalf("round %d: submit: %v", i, err)
		}
		s = ctl.Snapshot()
		if s.State != round.Revealed || s.Breakdown == nil {
			t.Fatalf("round %d: %+v", i, s)
		}
		b := s.Breakdown
		if b.ModelScore != 500 || b.Correct == nil || b.Correct.Title == "" {
			t.Errorf("round %d: breakdown %+v", i, b)
		}
		if b.TotalScore != b.PriceScore+b.ModelScore {
			t.Errorf("round %d: total %d != %d+%d", i, b.TotalScore, b.PriceScore, b.ModelScore)
		}
		total += b.TotalScore
		if s.Score != total {
			t.Errorf("round %d: score %d, want %d", i, s.Score, total)
		}
		if err := ctl.Advance(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if s := ctl.Snapshot(); s.State != round.Finished || s.Score != total {
		t.Errorf("end: %+v", s)
	}
}

func TestTicketScoresOnce(t *testing.T) {
	c, _ := startServer(t, fleet[0])
	ctx := context.Background()

	rec, err := c.RandomCar(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ScoreGuess(ctx, 900_000, "BMW", rec); err != nil {
		t.Fatal(err)
	}
	_, err = c.ScoreGuess(ctx, 900_000, "BMW", rec)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusConflict || se.Code != "ticket_used" {
		t.Errorf("second score err = %v", err)
	}
}

func TestRandomCarEmptyCatalog(t *testing.T) {
	c, _ := startServer(t)
	ctl := round.New(c, c, round.WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}))
	if err := ctl.Start(context.Background()); err == nil {
		t.Fatal("expected load failure")
	}
	if s := ctl.Snapshot(); s.State != round.LoadFailed {
		t.Errorf("state = %v", s.State)
	}
}

func TestSearchTitles(t *testing.T) {
	c, _ := startServer(t, fleet...)
	ctx := context.Background()

	got, err := c.SearchTitles(ctx, "(e90")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"BMW 3 серии (E90)"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = c.SearchTitles(ctx, "")
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("blank query: %v, %v", got, err)
	}
}

func TestAutocompleteShortQueryStaysLocal(t *testing.T) {
	c, searches := startServer(t, fleet...)
	results := make(chan suggest.Result, 4)
	ac := suggest.NewAutocomplete(c, func(r suggest.Result) { results <- r },
		suggest.WithQuietPeriod(5*time.Millisecond))
	defer ac.Close()

	wait := func() suggest.Result {
		t.Helper()
		select {
		case r := <-results:
			return r
		case <-time.After(2 * time.Second):
			t.Fatal("no result delivered")
			return suggest.Result{}
		}
	}

	ac.Input("B")
	if r := wait(); len(r.Titles) != 0 || r.Err != nil {
		t.Errorf("short query result %+v", r)
	}
	if n := searches.Load(); n != 0 {
		t.Errorf("short query reached the server %d times", n)
	}

	ac.Input("bmw")
	r := wait()
	if want := []string{"BMW 3 серии (E90)", "BMW X5"}; !reflect.DeepEqual(r.Titles, want) {
		t.Errorf("got %v, want %v", r.Titles, want)
	}
	if n := searches.Load(); n != 1 {
		t.Errorf("searches = %d, want 1", n)
	}
}
