// Package httpapi is the external read surface over the relay-record
// store: pending-transaction queries for users and dashboards, operator
// balance endpoints, and the administrative clear. It is a thin adapter;
// all invariants live in the store.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/assetbridge-io/relayer/common/types"
	"github.com/assetbridge-io/relayer/txstore"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server serves the read API over one listener.
type Server struct {
	store  txstore.Store
	chains types.ChainRegistry
	logger *logrus.Logger
	server *http.Server
}

func NewServer(addr string, store txstore.Store, chains types.ChainRegistry, logger *logrus.Logger) *Server {
	s := &Server{
		store:  store,
		chains: chains,
		logger: logger,
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/transactions/pending", s.listPending).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions/pending/user/{user}", s.listPendingByUser).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions/pending/chain/{chain}", s.listPendingByChain).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions", s.clearAll).Methods(http.MethodDelete)
	router.HandleFunc("/api/operator/{chain}/balance", s.operatorBalance).Methods(http.MethodGet)

	corsOk := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      corsOk(router),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return s
}

// Start serves until Shutdown is called. Blocking.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.server.Addr).Info("http api listening")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "http api server failed")
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing stack for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) listPending(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListAll(r.Context(), 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, records)
}

func (s *Server) listPendingByUser(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	records, err := s.store.ListPendingByUser(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, records)
}

func (s *Server) listPendingByChain(w http.ResponseWriter, r *http.Request) {
	chain, ok := types.ParseChainTag(mux.Vars(r)["chain"])
	if !ok {
		http.Error(w, `chain must be "L1" or "L2"`, http.StatusBadRequest)
		return
	}

	records, err := s.store.ListPendingByChain(r.Context(), chain)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, records)
}

func (s *Server) clearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// operatorBalance reports the operator address and its native or token
// balance on one leg, for liquidity monitoring.
func (s *Server) operatorBalance(w http.ResponseWriter, r *http.Request) {
	chain, ok := types.ParseChainTag(mux.Vars(r)["chain"])
	if !ok {
		http.Error(w, `chain must be "L1" or "L2"`, http.StatusBadRequest)
		return
	}

	client := s.chains.Get(chain)
	if client == nil {
		http.Error(w, "chain not configured", http.StatusNotFound)
		return
	}

	address, err := client.SolverAddress()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token := r.URL.Query().Get("token")
	balance, err := client.GetTokenBalance(r.Context(), address, token)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.respond(w, map[string]string{
		"chain":   chain.String(),
		"address": address,
		"token":   token,
		"balance": balance.String(),
	})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode http response")
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	}).WithError(err).Error("http api request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
