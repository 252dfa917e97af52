package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"school-counseling-backend/internal/auth"
	"school-counseling-backend/internal/moderation"
	"school-counseling-backend/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"
)

// Server defines fields used in HTTP processing
type Server struct {
	logger        *zap.SugaredLogger
	httpServer    *http.Server
	afterShutdown []func()
	h             handler
}

// NewServer wires handlers, middlewares and routes into an http.Server.
// searcher may be nil, in which case semantic search degrades to empty
// results.
func NewServer(logger *zap.SugaredLogger, store Store, issuer *auth.Issuer,
	filter *moderation.Filter, searcher *search.Searcher, opts ...Option) (*Server, error) {

	srv := &Server{
		logger: logger,
		h: handler{
			logger:   logger,
			store:    store,
			issuer:   issuer,
			filter:   filter,
			searcher: searcher,
			parsers: parsers{
				loginPool:       fastjson.ParserPool{},
				registerPool:    fastjson.ParserPool{},
				refreshPool:     fastjson.ParserPool{},
				initiatePool:    fastjson.ParserPool{},
				sendMessagePool: fastjson.ParserPool{},
				articlePool:     fastjson.ParserPool{},
				searchPool:      fastjson.ParserPool{},
			},
		},
	}

	h := &srv.h
	limiter := newLimiterPool(loginRPS, loginBurst)
	authed := func(next http.HandlerFunc) http.Handler {
		return requireAuth(next, issuer)
	}

	mux := http.NewServeMux()
	route := func(pattern string, handler http.Handler) {
		mux.Handle(pattern, measure(logRequests(handler, logger.Desugar()), pattern))
	}

	route("POST /auth/login", rateLimit(enforceJSON(http.HandlerFunc(h.login)), limiter))
	route("POST /auth/register-student", enforceJSON(http.HandlerFunc(h.registerStudent)))
	route("POST /auth/refresh", enforceJSON(http.HandlerFunc(h.refresh)))

	route("POST /chats/initiate", authed(h.initiateChat))
	route("GET /chats/{$}", authed(h.listChats))
	route("GET /chats/{id}/messages", authed(h.chatMessages))
	route("POST /chats/{id}/send_message", authed(h.sendMessage))
	route("POST /chats/{id}/mark_read", authed(h.markRead))

	route("GET /articles/{$}", http.HandlerFunc(h.listArticles))
	route("GET /articles/{id}", http.HandlerFunc(h.getArticle))
	route("POST /articles/{$}", authed(h.createArticle))
	route("PUT /articles/{id}", authed(h.updateArticle))
	route("DELETE /articles/{id}", authed(h.deleteArticle))
	route("POST /articles/ai-search", enforceJSON(http.HandlerFunc(h.aiSearch)))

	mux.Handle("GET /metrics", promhttp.Handler())

	cfg := &config{
		httpServer: &http.Server{
			Addr:    "0.0.0.0:9000",
			Handler: mux,
		},
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	srv.httpServer = cfg.httpServer
	srv.afterShutdown = cfg.afterShutdown

	return srv, nil
}

// Start calls ListenAndServe on http.Server instance inside Server struct
// and implements graceful shutdown via goroutine waiting for signals
func (s *Server) Start() error {
	idleConnsClosed := make(chan struct{})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		s.logger.Info("Shutting down HTTP server")

		if err := s.httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorf("srv.Shutdown: %v", err)
		}
		s.logger.Info("HTTP server is stopped")

		close(idleConnsClosed)
	}()

	s.logger.Infof("Starting HTTP server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("s.httpServer.ListenAndServe: %v", err)
	}

	<-idleConnsClosed

	for _, f := range s.afterShutdown {
		f()
	}

	return nil
}
