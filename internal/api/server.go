// Package api exposes the read-only JSON API over chi.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lendlens/lendlens/internal/chains"
	"github.com/lendlens/lendlens/internal/health"
	"github.com/lendlens/lendlens/internal/normalize"
	"github.com/lendlens/lendlens/internal/pricing"
	"github.com/lendlens/lendlens/internal/snapshot"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// Server serves snapshots through the cache.
type Server struct {
	cache   *snapshot.Cache
	checker *health.Checker
}

// NewServer creates the API server.
func NewServer(cache *snapshot.Cache, checker *health.Checker) *Server {
	return &Server{cache: cache, checker: checker}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.checker.Handler())
	r.Get("/chains", s.handleChains)
	r.Get("/snapshot/{chain}/{address}", s.handleSnapshot)

	return r
}

type chainInfo struct {
	ID                 chains.ID `json:"id"`
	Name               string    `json:"name"`
	AddressExplorerURL string    `json:"address_explorer_url"`
	TxExplorerURL      string    `json:"tx_explorer_url"`
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	profiles := chains.All()
	out := make([]chainInfo, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, chainInfo{
			ID:                 p.ID,
			Name:               p.Name,
			AddressExplorerURL: p.AddressExplorerURL,
			TxExplorerURL:      p.TxExplorerURL,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type snapshotResponse struct {
	*snapshot.Snapshot
	Totals      snapshot.Totals `json:"totals"`
	ExplorerURL string          `json:"explorer_url"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	chainID := chains.ID(chi.URLParam(r, "chain"))
	address := chi.URLParam(r, "address")

	profile, err := chains.Resolve(chainID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !common.IsHexAddress(address) {
		writeError(w, http.StatusBadRequest, errors.New("invalid address"))
		return
	}

	snap, err := s.cache.GetOrFetch(r.Context(), chainID, address)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:    snap,
		Totals:      snap.Totals(),
		ExplorerURL: profile.AddressURL(snap.Address),
	})
}

// statusFor maps the error taxonomy onto HTTP statuses. Upstream data
// defects (malformed records, missing index prices) surface as bad gateway:
// the request was fine, the upstream answer was not.
func statusFor(err error) int {
	var transport *subgraph.TransportError
	var malformed *normalize.MalformedRecordError
	switch {
	case errors.Is(err, chains.ErrUnknownChain), errors.Is(err, snapshot.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, snapshot.ErrUserNotFound):
		return http.StatusNotFound
	case errors.As(err, &transport), errors.As(err, &malformed), errors.Is(err, pricing.ErrPriceNotFound):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("API: encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
