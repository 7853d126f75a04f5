// Package api exposes an Orchestrator over the REST surface of spec §6,
// grounded on the teacher's cmd/explorer HTTP layer but rebuilt on chi
// (the teacher's declared but unused router dependency) instead of
// gorilla/mux.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"ironledger/core"
)

// Server wires an Orchestrator and HealthLogger to chi routes.
type Server struct {
	orch   *core.Orchestrator
	health *core.HealthLogger
	router chi.Router
	log    *log.Logger
}

// NewServer builds the router for all endpoints in spec §6.
func NewServer(orch *core.Orchestrator, health *core.HealthLogger) *Server {
	s := &Server{orch: orch, health: health, log: log.StandardLogger()}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/api/node/info", s.handleNodeInfo)
	r.Get("/api/chain", s.handleChain)
	r.Get("/api/chain/valid", s.handleChainValid)
	r.Post("/api/blocks/mine", s.handleMine)
	r.Get("/api/blocks/{index}", s.handleBlock)
	r.Post("/api/transactions", s.handleSubmitTransaction)
	r.Get("/api/transactions/pending", s.handlePendingTransactions)
	r.Get("/api/transactions/{id}/proof", s.handleTransactionProof)
	r.Post("/api/wallet/new", s.handleNewWallet)
	r.Get("/api/balance/{address}", s.handleBalance)
	r.Post("/api/contracts/deploy", s.handleDeployContract)
	r.Post("/api/contracts/call", s.handleCallContract)
	r.Get("/api/peers", s.handlePeers)
	if health != nil {
		r.Handle("/metrics", health.Handler())
	}

	s.router = r
	return s
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Debug("api: request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

// writeErr maps a core.CoreError's kind to an HTTP status the way spec §7
// categorizes failures: malformed input and compile errors are 400, bad
// signatures 401, duplicates 409, a full mempool 429, and consensus failures
// the caller could not have prevented (chain rejected, mining preempted,
// difficulty not met) 409; anything else falls back to 500. VM failures do
// not reach here: they are reported inside a successful call's Receipt.
func writeErr(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case core.ErrMalformed, core.ErrBadOperand, core.ErrUnresolvedLabel, core.ErrUnknownOpcode:
		status = http.StatusBadRequest
	case core.ErrInvalidSignature, core.ErrAddressMismatch:
		status = http.StatusUnauthorized
	case core.ErrDuplicate:
		status = http.StatusConflict
	case core.ErrMempoolFull:
		status = http.StatusTooManyRequests
	case core.ErrChainRejected, core.ErrMiningPreempted, core.ErrDifficultyNotMet:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Kind: string(kind), Error: err.Error()})
}

func (s *Server) handleNodeInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Info())
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.ChainSnapshot())
}

func (s *Server) handleChainValid(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"valid": s.orch.ValidateChain()})
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	block, err := s.orch.MineOnce()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad block index"})
		return
	}
	block, ok := s.orch.BlockByIndex(idx)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "block not found"})
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed transaction body"})
		return
	}
	if err := s.orch.SubmitTransaction(&tx); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

func (s *Server) handlePendingTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.PendingTransactions())
}

func (s *Server) handleTransactionProof(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	block, proof, err := s.orch.TransactionProof(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"block_index": block.Index,
		"merkle_root": block.MerkleRoot,
		"proof":       proof,
	})
}

func (s *Server) handleNewWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := core.NewWallet()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": string(wallet.Addr)})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := core.Address(chi.URLParam(r, "address"))
	writeJSON(w, http.StatusOK, map[string]interface{}{"address": addr, "balance": s.orch.Balance(addr)})
}

func (s *Server) handleDeployContract(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed transaction body"})
		return
	}
	addr, err := s.orch.DeployContract(&tx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"address": string(addr)})
}

func (s *Server) handleCallContract(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed transaction body"})
		return
	}
	receipt, err := s.orch.CallContract(&tx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Peers())
}
