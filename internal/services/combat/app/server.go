// Package server hosts the authoritative combat engine behind a websocket
// relay and a small HTTP surface for reading state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/shadowtrack/internal/platform/discovery"
	"github.com/louisbranch/shadowtrack/internal/platform/i18n/catalog"
	"github.com/louisbranch/shadowtrack/internal/platform/random"
	"github.com/louisbranch/shadowtrack/internal/platform/requestctx"
	"github.com/louisbranch/shadowtrack/internal/platform/timeouts"
	"github.com/louisbranch/shadowtrack/internal/services/combat/authority"
	"github.com/louisbranch/shadowtrack/internal/services/combat/dice"
	"github.com/louisbranch/shadowtrack/internal/services/combat/docstore"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/actor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/armor"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/engine"
	"github.com/louisbranch/shadowtrack/internal/services/combat/domain/phase"
	"github.com/louisbranch/shadowtrack/internal/services/combat/narration"
	"github.com/louisbranch/shadowtrack/internal/services/combat/storage/sqlite"
	"github.com/louisbranch/shadowtrack/internal/services/combat/transport/wsrelay"
)

const defaultFeedLimit = 500

// Config holds combat server settings.
type Config struct {
	HTTPAddr          string
	DBPath            string
	TokenSecret       string
	TokenIssuer       string
	TokenTTL          time.Duration
	Locale            string
	OriginPatterns    []string
	FeedLimit         int
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server owns the store, the engine and the HTTP listener.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	store           *sqlite.Store
	handler         *engine.Handler
	relay           *authority.Relay
	feed            *narration.Feed
	armor           *armor.Resolver
	tokens          wsrelay.TokenConfig
}

// NewServer opens the store and wires the engine.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if strings.TrimSpace(config.TokenSecret) == "" {
		return nil, errors.New("token secret is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}
	if config.FeedLimit <= 0 {
		config.FeedLimit = defaultFeedLimit
	}

	store, err := sqlite.Open(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open combat store: %w", err)
	}
	s := &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		store:           store,
		armor:           armor.NewResolver(),
		tokens: wsrelay.TokenConfig{
			Secret: []byte(config.TokenSecret),
			Issuer: config.TokenIssuer,
			TTL:    config.TokenTTL,
		},
	}
	store.Watch(s.invalidateArmor)

	narrator := narration.New(config.Locale, narration.StoreNames{Store: store})
	s.feed = &narration.Feed{Narrator: narrator, Limit: config.FeedLimit}
	s.handler = &engine.Handler{
		Commands: phase.NewRegistry(),
		Decider:  phase.NewDecider(dice.NewSeededRoller(random.NewSeed), s.armor),
		Store:    store,
		Sink:     narration.Fanout{narration.LogSink{Narrator: narrator}, s.feed},
	}
	s.relay = &authority.Relay{
		IsAuthority: func() bool { return true },
		Executor:    s.handler,
		Commands:    s.handler.Commands,
	}

	ws := &wsrelay.Server{Tokens: s.tokens, OriginPatterns: config.OriginPatterns}
	s.relay.Serve(ws)

	s.httpServer = &http.Server{
		Addr:              httpAddr,
		Handler:           s.routes(ws),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
	return s, nil
}

// Run creates and serves a combat server until ctx ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init combat server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve combat: %w", err)
	}
	return nil
}

// ListenAndServe serves HTTP until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("combat server is nil")
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("combat server listening on %s", s.httpAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Close releases the store.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close combat store: %v", err)
	}
}

func (s *Server) invalidateArmor(batch docstore.Batch) {
	for _, ref := range batch.Refs() {
		if ref.Kind == docstore.KindActor {
			s.armor.Invalidate(ref.ID)
		}
	}
}

func (s *Server) routes(ws http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /up", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK\n"))
	})
	mux.Handle("GET "+discovery.RelayPath, ws)
	mux.Handle("GET /combat/sessions/{id}", s.requireToken(false, s.handleSession))
	mux.Handle("GET /combat/log", s.requireToken(false, s.handleLog))
	mux.Handle("PUT /combat/actors/{id}", s.requireToken(true, s.handlePutActor))
	return mux
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if principal, _ := requestctx.PrincipalFromContext(r.Context()); principal.SessionID != "" && principal.SessionID != id {
		http.Error(w, "token is not valid for this session", http.StatusForbidden)
		return
	}
	doc, err := s.store.Load(r.Context(), docstore.CombatRef(id))
	if errors.Is(err, docstore.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("load session: %v", err)
		http.Error(w, "load session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// handleLog returns the narrated combat log, localised for the request.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	principal, _ := requestctx.PrincipalFromContext(r.Context())
	locale := r.URL.Query().Get("lang")
	if locale == "" {
		locale = catalog.Default().Match(r.Header.Get("Accept-Language")).String()
	}
	narrator := narration.New(locale, narration.StoreNames{Store: s.store})
	lines := make([]narration.Line, 0)
	for _, rec := range s.feed.Records() {
		if principal.SessionID != "" && rec.SessionID != principal.SessionID {
			continue
		}
		lines = append(lines, narrator.Render(r.Context(), rec)...)
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) handlePutActor(w http.ResponseWriter, r *http.Request) {
	var a actor.Actor
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&a); err != nil {
		http.Error(w, "decode actor: "+err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if a.ID == "" {
		a.ID = id
	}
	if a.ID != id {
		http.Error(w, "actor id does not match path", http.StatusBadRequest)
		return
	}
	if _, err := actor.ParseCategory(string(a.Category)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.Put(r.Context(), docstore.ActorRef(id), a); err != nil {
		log.Printf("put actor %s: %v", id, err)
		http.Error(w, "store actor", http.StatusInternalServerError)
		return
	}
	s.armor.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

// requireToken admits requests carrying a valid bearer token and stores the
// caller in the request context. With gm set, only game master tokens pass.
func (s *Server) requireToken(gm bool, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		claims, err := wsrelay.ParseToken(s.tokens, token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if gm && !claims.GM() {
			http.Error(w, "game master token required", http.StatusForbidden)
			return
		}
		ctx := requestctx.WithPrincipal(r.Context(), requestctx.Principal{
			ParticipantID: claims.Participant(),
			SessionID:     claims.SessionID,
			GM:            claims.GM(),
		})
		next(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
