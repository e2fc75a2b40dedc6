// internal/httpserver/routes.go
//
// Game routes:
//   - GET  /api/random-car        → one random record (with a round ticket)
//   - POST /api/guess             → score {guessPrice, guessModel, correct}
//   - GET  /api/search-models?q=  → deduplicated matching titles

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/carguess/internal/car"
	"github.com/robalobadob/carguess/internal/catalog"
	"github.com/robalobadob/carguess/internal/rounds"
	"github.com/robalobadob/carguess/internal/scoring"
)

func (s *Server) mountGame(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/random-car", s.handleRandomCar)
		r.Post("/guess", s.handleGuess)
		r.Get("/search-models", s.handleSearchModels)
	})
}

// handleRandomCar returns one uniformly sampled record. When tickets are
// enabled the record carries one; when client truth is not trusted the
// answer fields are withheld until the guess is scored.
func (s *Server) handleRandomCar(w http.ResponseWriter, r *http.Request) {
	c, err := s.cfg.Catalog.Random(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrEmpty) {
			writeError(w, http.StatusServiceUnavailable, "catalog_empty")
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("random car")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if s.cfg.Tickets != nil {
		tok, _, err := s.cfg.Tickets.Issue(c.ID)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("issue ticket")
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		c.Ticket = tok
		if !s.cfg.TrustClientTruth {
			c = c.Redacted()
		}
	}
	_ = json.NewEncoder(w).Encode(c)
}

// guessReq is the POST /api/guess payload. guessPrice and guessModel are
// left untyped so malformed values degrade to a zero sub-score instead of
// rejecting the request.
type guessReq struct {
	GuessPrice any      `json:"guessPrice"`
	GuessModel any      `json:"guessModel"`
	Correct    *car.Car `json:"correct"`
}

// handleGuess scores a guess. The response is scoring.Breakdown:
// {totalScore, priceScore, modelScore, correct, error}.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	truth, status, code := s.resolveTruth(r, req.Correct)
	if status != 0 {
		writeError(w, status, code)
		return
	}

	model, _ := req.GuessModel.(string)
	b := scoring.Score(scoring.Guess{Price: req.GuessPrice, Model: model}, truth)

	ev := hlog.FromRequest(r).Debug().
		Str("car", truth.ID).
		Int("total", b.TotalScore).
		Int("price", b.PriceScore).
		Int("model", b.ModelScore)
	if b.Error != nil {
		ev = ev.Float64("rel_error", *b.Error)
	}
	ev.Msg("guess scored")

	_ = json.NewEncoder(w).Encode(b)
}

// resolveTruth picks the record to score against. A non-zero status means
// the request must be rejected with code.
func (s *Server) resolveTruth(r *http.Request, sent *car.Car) (car.Car, int, string) {
	if sent == nil {
		return car.Car{}, http.StatusBadRequest, "truth_required"
	}

	if sent.Ticket != "" && s.cfg.Tickets != nil {
		t, err := s.cfg.Tickets.Verify(sent.Ticket)
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("ticket rejected")
			return car.Car{}, http.StatusBadRequest, "ticket_invalid"
		}
		stored, err := s.cfg.Catalog.Get(r.Context(), t.CarID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return car.Car{}, http.StatusNotFound, "not_found"
			}
			hlog.FromRequest(r).Error().Err(err).Msg("load ticket car")
			return car.Car{}, http.StatusInternalServerError, "server_error"
		}
		if err := s.cfg.Ledger.Consume(r.Context(), t); err != nil {
			if errors.Is(err, rounds.ErrTicketUsed) {
				return car.Car{}, http.StatusConflict, "ticket_used"
			}
			hlog.FromRequest(r).Error().Err(err).Msg("consume ticket")
			return car.Car{}, http.StatusInternalServerError, "server_error"
		}
		return stored, 0, ""
	}

	if !s.cfg.TrustClientTruth {
		return car.Car{}, http.StatusBadRequest, "truth_required"
	}
	return *sent, 0, ""
}

// handleSearchModels returns titles matching q. A blank q yields [].
func (s *Server) handleSearchModels(w http.ResponseWriter, r *http.Request) {
	titles, err := s.cfg.Catalog.SearchTitles(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("search models")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(titles)
}
