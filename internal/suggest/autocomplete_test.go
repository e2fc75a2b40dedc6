package suggest

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	// block, when non-nil, is consulted per query; the search waits on the
	// channel (ignoring ctx) before answering.
	block   map[string]chan struct{}
	started chan string
}

func (f *fakeSearcher) SearchTitles(ctx context.Context, q string) ([]string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	ch := f.block[q]
	f.mu.Unlock()
	if f.started != nil {
		f.started <- q
	}
	if ch != nil {
		<-ch
	}
	return Match(corpus, q), nil
}

func (f *fakeSearcher) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func collect() (chan Result, func(Result)) {
	ch := make(chan Result, 16)
	return ch, func(r Result) { ch <- r }
}

func waitResult(t *testing.T, ch chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func expectNoResult(t *testing.T, ch chan Result) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("unexpected result %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAutocompleteDebouncesBurst(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &fakeSearcher{}
	ch, deliver := collect()
	a := NewAutocomplete(s, deliver, WithClock(clock))
	defer a.Close()

	a.Input("su")
	clock.Advance(100 * time.Millisecond)
	a.Input("sub")
	clock.Advance(199 * time.Millisecond)
	expectNoResult(t, ch)

	last := a.Input("subaru")
	clock.Advance(DefaultQuietPeriod)

	r := waitResult(t, ch)
	if r.Seq != last || r.Query != "subaru" {
		t.Fatalf("got result for %q (seq %d), want subaru (seq %d)", r.Query, r.Seq, last)
	}
	if !reflect.DeepEqual(r.Titles, []string{"Subaru Impreza", "Subaru Forester"}) {
		t.Errorf("titles = %q", r.Titles)
	}
	expectNoResult(t, ch)
	if got := s.calls(); !reflect.DeepEqual(got, []string{"subaru"}) {
		t.Errorf("searcher calls = %q, want only the settled query", got)
	}
}

func TestAutocompleteShortQueryNeverSearches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &fakeSearcher{}
	ch, deliver := collect()
	a := NewAutocomplete(s, deliver, WithClock(clock))
	defer a.Close()

	a.Input(" a ")
	clock.Advance(DefaultQuietPeriod)

	r := waitResult(t, ch)
	if r.Titles == nil || len(r.Titles) != 0 {
		t.Errorf("titles = %#v, want empty list", r.Titles)
	}
	if len(s.calls()) != 0 {
		t.Errorf("searcher called for short query: %q", s.calls())
	}
}

func TestAutocompleteDiscardsSupersededResponse(t *testing.T) {
	clock := clockwork.NewFakeClock()
	release := make(chan struct{})
	s := &fakeSearcher{
		block:   map[string]chan struct{}{"sub": release},
		started: make(chan string, 4),
	}
	ch, deliver := collect()
	a := NewAutocomplete(s, deliver, WithClock(clock))
	defer a.Close()

	a.Input("sub")
	clock.Advance(DefaultQuietPeriod)
	select {
	case <-s.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first search never started")
	}

	newer := a.Input("toyota")
	clock.Advance(DefaultQuietPeriod)
	r := waitResult(t, ch)
	if r.Seq != newer || !reflect.DeepEqual(r.Titles, []string{"Toyota Camry"}) {
		t.Fatalf("got %+v, want toyota result", r)
	}

	// The older search now completes after the newer one was delivered.
	close(release)
	expectNoResult(t, ch)
}

func TestAutocompleteCloseStopsDelivery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := &fakeSearcher{}
	ch, deliver := collect()
	a := NewAutocomplete(s, deliver, WithClock(clock))

	a.Input("camry")
	a.Close()
	clock.Advance(time.Second)
	expectNoResult(t, ch)
	if a.Input("more") != 0 {
		t.Error("Input after Close should be ignored")
	}
}
