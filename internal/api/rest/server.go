package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"depthsim/internal/config"
	"depthsim/internal/feed"
	"depthsim/internal/infra/metrics"
	"depthsim/internal/orderbook"
	"depthsim/internal/simulation"
	"depthsim/internal/venue"
)

// Server exposes the book, the impact simulator and subscription control
// over HTTP.
type Server struct {
	mux        *http.ServeMux
	book       *orderbook.Book
	feed       *feed.Manager
	depthLimit int
	logger     zerolog.Logger
}

func New(cfg config.Config, book *orderbook.Book, fm *feed.Manager, logger zerolog.Logger) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		book:       book,
		feed:       fm,
		depthLimit: cfg.Feed.DepthLimit,
		logger:     logger.With().Str("component", "rest").Logger(),
	}
	s.mux.HandleFunc("GET /book", s.handleBook)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("POST /simulate", s.handleSimulate)
	s.mux.HandleFunc("DELETE /simulate", s.handleClearSimulation)
	s.mux.HandleFunc("POST /subscribe", s.handleSubscribe)
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type bookResponse struct {
	Venue     string            `json:"venue"`
	Symbol    string            `json:"symbol"`
	Connected bool              `json:"connected"`
	Bids      []orderbook.Level `json:"bids"`
	Asks      []orderbook.Level `json:"asks"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	depth := s.depthLimit
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "depth must be a positive integer"})
			return
		}
		depth = n
	}
	writeJSON(w, http.StatusOK, bookResponse{
		Venue:     s.book.Venue(),
		Symbol:    s.book.Symbol(),
		Connected: s.book.Connected(),
		Bids:      lo.Slice(s.book.Bids(), 0, depth),
		Asks:      lo.Slice(s.book.Asks(), 0, depth),
	})
}

type statusResponse struct {
	Venue     string                    `json:"venue"`
	Symbol    string                    `json:"symbol"`
	Connected bool                      `json:"connected"`
	BidDepth  int                       `json:"bid_depth"`
	AskDepth  int                       `json:"ask_depth"`
	Order     *orderbook.SimulatedOrder `json:"order,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	bids, asks := s.book.Depths()
	writeJSON(w, http.StatusOK, statusResponse{
		Venue:     s.book.Venue(),
		Symbol:    s.book.Symbol(),
		Connected: s.book.Connected(),
		BidDepth:  bids,
		AskDepth:  asks,
		Order:     s.book.Order(),
	})
}

type simulateResponse struct {
	Order         orderbook.SimulatedOrder `json:"order"`
	Metrics       simulation.Metrics       `json:"metrics"`
	SelectedSide  simulation.SideName      `json:"selected_side"`
	SelectedIndex int                      `json:"selected_index"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var o orderbook.SimulatedOrder
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be JSON {side, price, quantity}"})
		return
	}
	if err := simulation.Validate(o); err != nil {
		metrics.SimulationRejects.Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.book.SubmitOrder(&o)

	side := simulation.DisplaySide(o)
	levels := s.book.Bids()
	if side == simulation.AskSide {
		levels = s.book.Asks()
	}

	kind := "market"
	if !o.IsMarket() {
		kind = "limit"
	}
	metrics.SimulationsTotal.WithLabelValues(kind).Inc()

	writeJSON(w, http.StatusOK, simulateResponse{
		Order:         o,
		Metrics:       simulation.Estimate(o, s.book),
		SelectedSide:  side,
		SelectedIndex: simulation.LevelIndex(o, side, levels),
	})
}

func (s *Server) handleClearSimulation(w http.ResponseWriter, r *http.Request) {
	s.book.SubmitOrder(nil)
	w.WriteHeader(http.StatusNoContent)
}

type subscribeRequest struct {
	Venue  string `json:"venue"`
	Symbol string `json:"symbol"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "body must be JSON {venue, symbol}"})
		return
	}
	if req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}
	if err := s.feed.Switch(req.Venue, req.Symbol); err != nil {
		if errors.Is(err, venue.ErrUnknownVenue) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "venue must be one of OKX, Bybit, Deribit"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.logger.Info().Str("venue", req.Venue).Str("symbol", req.Symbol).Msg("subscription switched")
	bids, asks := s.book.Depths()
	writeJSON(w, http.StatusOK, statusResponse{
		Venue:     s.book.Venue(),
		Symbol:    s.book.Symbol(),
		Connected: s.book.Connected(),
		BidDepth:  bids,
		AskDepth:  asks,
	})
}
