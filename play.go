package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/round"
	"github.com/robalobadob/carguess/internal/scoring"
	"github.com/robalobadob/carguess/internal/suggest"
)

// player is the line-oriented terminal front end for a round.Controller.
//
// Price and model are read on separate prompts. While entering either,
// ":n" / ":p" flip through photos, ":s" skips the round and ":q" quits.
// At the model prompt "?text" lists matching titles.
type player struct {
	ctl     *round.Controller
	ac      *suggest.Autocomplete
	results chan suggest.Result
	in      *bufio.Scanner
	out     io.Writer
}

func newPlayer(ctl *round.Controller, s suggest.Searcher, in io.Reader, out io.Writer) *player {
	p := &player{
		ctl:     ctl,
		results: make(chan suggest.Result, 4),
		in:      bufio.NewScanner(in),
		out:     out,
	}
	p.ac = suggest.NewAutocomplete(s, func(r suggest.Result) {
		select {
		case p.results <- r:
		default:
		}
	}, suggest.WithQuietPeriod(0))
	return p
}

func (p *player) close() { p.ac.Close() }

func (p *player) run(ctx context.Context) error {
	_ = p.ctl.Start(ctx)
	for ctx.Err() == nil {
		s := p.ctl.Snapshot()
		switch s.State {
		case round.LoadFailed:
			fmt.Fprintf(p.out, "could not load a car: %v\n", s.Err)
			line, ok := p.prompt("retry? [Y/n] ")
			if !ok || strings.EqualFold(line, "n") {
				return nil
			}
			_ = p.ctl.Retry(ctx)

		case round.AwaitingGuess:
			p.showCar(s)
			if p.guess(ctx) {
				return nil
			}

		case round.Revealed:
			p.showBreakdown(s)
			if _, ok := p.prompt("press enter to continue "); !ok {
				return nil
			}
			_ = p.ctl.Advance(ctx)

		case round.Finished:
			fmt.Fprintf(p.out, "\nfinal score: %d of %d\n",
				s.Score, round.TotalRounds*(scoring.MaxPriceScore+scoring.ExactModelScore))
			line, ok := p.prompt("play again? [y/N] ")
			if !ok || !strings.EqualFold(line, "y") {
				return nil
			}
			_ = p.ctl.Restart(ctx)

		default:
			return fmt.Errorf("unexpected state %v", s.State)
		}
	}
	return nil
}

// guess reads one price and model and submits them. It reports whether
// the player asked to quit.
func (p *player) guess(ctx context.Context) bool {
	for {
		line, ok := p.prompt("price> ")
		if !ok {
			return true
		}
		switch p.command(ctx, line) {
		case quit:
			return true
		case skip:
			return false
		case stay:
			continue
		}
		if _, ok := round.ParsePrice(line); !ok {
			fmt.Fprintln(p.out, "enter a price, e.g. 1 250 000")
			continue
		}
		p.ctl.SetPrice(line)
		break
	}

	for {
		line, ok := p.prompt("model (?text for suggestions)> ")
		if !ok {
			return true
		}
		switch p.command(ctx, line) {
		case quit:
			return true
		case skip:
			return false
		case stay:
			continue
		}
		if q, found := strings.CutPrefix(line, "?"); found {
			p.suggest(q)
			continue
		}
		p.ctl.SetModel(line)
		if !p.ctl.CanSubmit() {
			fmt.Fprintln(p.out, "enter a model")
			continue
		}
		break
	}

	if err := p.ctl.Submit(ctx); err != nil {
		fmt.Fprintf(p.out, "scoring failed: %v\n", err)
	}
	return false
}

type action int

const (
	none action = iota
	stay
	skip
	quit
)

// command handles the ":x" shortcuts.
func (p *player) command(ctx context.Context, line string) action {
	switch strings.TrimSpace(line) {
	case ":q":
		return quit
	case ":s":
		_ = p.ctl.Advance(ctx)
		return skip
	case ":n":
		p.ctl.NextImage()
		p.showImage(p.ctl.Snapshot())
		return stay
	case ":p":
		p.ctl.PrevImage()
		p.showImage(p.ctl.Snapshot())
		return stay
	}
	return none
}

func (p *player) suggest(q string) {
	for len(p.results) > 0 {
		<-p.results
	}
	seq := p.ac.Input(q)
	timeout := time.After(3 * time.Second)
	for {
		select {
		case r := <-p.results:
			if r.Seq != seq {
				continue
			}
			switch {
			case r.Err != nil:
				fmt.Fprintf(p.out, "  search failed: %v\n", r.Err)
			case len(r.Titles) == 0:
				fmt.Fprintln(p.out, "  no suggestions")
			default:
				for _, t := range r.Titles {
					fmt.Fprintf(p.out, "  %s\n", t)
				}
			}
			return
		case <-timeout:
			fmt.Fprintln(p.out, "  no suggestions")
			return
		}
	}
}

func (p *player) prompt(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimRight(p.in.Text(), "\r"), true
}

func (p *player) showCar(s round.Snapshot) {
	c := s.Car
	fmt.Fprintf(p.out, "\n── round %d/%d · score %d ──\n", s.Round, round.TotalRounds, s.Score)
	if c.Title != "" {
		fmt.Fprintf(p.out, "%s\n", c.Title)
	}
	var facts []string
	if c.Year.Finite() {
		facts = append(facts, fmt.Sprintf("%.0f", c.Year.Value))
	}
	if c.MileageKm.Finite() {
		facts = append(facts, round.FormatPrice(c.MileageKm.Value)+" km")
	}
	if c.EngineLiters.Finite() {
		facts = append(facts, fmt.Sprintf("%.1f l", c.EngineLiters.Value))
	}
	if c.EngineHP.Finite() {
		facts = append(facts, fmt.Sprintf("%.0f hp", c.EngineHP.Value))
	}
	for _, f := range []string{c.Fuel, c.Transmission, c.Drive, c.Location} {
		if f != "" {
			facts = append(facts, f)
		}
	}
	if len(facts) > 0 {
		fmt.Fprintln(p.out, strings.Join(facts, " · "))
	}
	for _, d := range c.Description {
		fmt.Fprintf(p.out, "  %s\n", d)
	}
	p.showImage(s)
}

func (p *player) showImage(s round.Snapshot) {
	if s.Car == nil {
		return
	}
	g := s.Car.Gallery()
	if len(g) == 0 {
		return
	}
	fmt.Fprintf(p.out, "photo %d/%d: %s\n", s.ImageIndex+1, len(g), g[s.ImageIndex].Src)
}

func (p *player) showBreakdown(s round.Snapshot) {
	b := s.Breakdown
	if b == nil {
		return
	}
	truth := car.Car{}
	if b.Correct != nil {
		truth = *b.Correct
	}
	fmt.Fprintf(p.out, "it was: %s", truth.Title)
	if target, ok := truth.TargetPrice(); ok {
		fmt.Fprintf(p.out, " for %s ₽", round.FormatPrice(target))
	}
	fmt.Fprintln(p.out)
	if b.Error != nil {
		fmt.Fprintf(p.out, "price: %d (off by %.1f%%)\n", b.PriceScore, *b.Error*100)
	} else {
		fmt.Fprintf(p.out, "price: %d\n", b.PriceScore)
	}
	fmt.Fprintf(p.out, "model: %d\nround: %d · total: %d\n", b.ModelScore, b.TotalScore, s.Score)
}
