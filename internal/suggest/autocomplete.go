package suggest

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultQuietPeriod = 200 * time.Millisecond
	DefaultMinLength   = 2
)

// Searcher looks up candidate titles for a query.
type Searcher interface {
	SearchTitles(ctx context.Context, query string) ([]string, error)
}

// Result is one delivered suggestion list. Seq is the issuance number of
// the Input call that produced it.
type Result struct {
	Seq    uint64
	Query  string
	Titles []string
	Err    error
}

// Autocomplete debounces keystrokes into searches.
//
// Each Input (re)schedules a search after the quiet period and cancels any
// pending or in-flight one. Results are delivered only if no newer Input
// has been issued since, so a slow old response never overwrites a newer
// list. Queries shorter than the minimum length resolve to an empty list
// without calling the Searcher.
type Autocomplete struct {
	searcher Searcher
	deliver  func(Result)
	clock    clockwork.Clock
	quiet    time.Duration
	minLen   int

	mu     sync.Mutex
	seq    uint64
	timer  clockwork.Timer
	cancel context.CancelFunc
	closed bool
}

// Option configures an Autocomplete.
type Option func(*Autocomplete)

func WithClock(c clockwork.Clock) Option     { return func(a *Autocomplete) { a.clock = c } }
func WithQuietPeriod(d time.Duration) Option { return func(a *Autocomplete) { a.quiet = d } }
func WithMinLength(n int) Option             { return func(a *Autocomplete) { a.minLen = n } }

// NewAutocomplete returns an Autocomplete that reports to deliver.
// deliver is called from a background goroutine.
func NewAutocomplete(s Searcher, deliver func(Result), opts ...Option) *Autocomplete {
	a := &Autocomplete{
		searcher: s,
		deliver:  deliver,
		clock:    clockwork.NewRealClock(),
		quiet:    DefaultQuietPeriod,
		minLen:   DefaultMinLength,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Input records the current text of the input box and returns its
// sequence number.
func (a *Autocomplete) Input(query string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0
	}
	a.seq++
	seq := a.seq
	a.stopLocked()
	a.timer = a.clock.AfterFunc(a.quiet, func() { a.fire(seq, query) })
	return seq
}

// Close cancels pending work; no results are delivered afterwards.
func (a *Autocomplete) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.stopLocked()
}

func (a *Autocomplete) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *Autocomplete) fire(seq uint64, query string) {
	a.mu.Lock()
	if a.closed || seq != a.seq {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	res := Result{Seq: seq, Query: query}
	if utf8.RuneCountInString(strings.TrimSpace(query)) < a.minLen {
		res.Titles = []string{}
	} else {
		res.Titles, res.Err = a.searcher.SearchTitles(ctx, query)
	}

	if !a.current(seq) {
		return
	}
	a.deliver(res)
}

func (a *Autocomplete) current(seq uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.closed && seq == a.seq
}
