package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CTAG07/markovlang/pkg/classify"
	"github.com/CTAG07/markovlang/pkg/corpus"
	"github.com/CTAG07/markovlang/pkg/markov"
)

// Server wires the classifier and its store to the HTTP API.
type Server struct {
	config    *Config
	logger    *slog.Logger
	authAPI   *AuthAPI
	modelsAPI *ModelsAPI
	serverAPI *ServerAPI
	apiMux    *http.ServeMux
}

// NewServer creates the API handlers and registers their routes.
func NewServer(config *Config, logger *slog.Logger, c *classify.Classifier, tok *corpus.Tokenizer, store markov.Store, actionChan chan string) *Server {
	server := &Server{
		config:    config,
		logger:    logger,
		authAPI:   NewAuthAPI(config.Server.ApiKey, logger),
		modelsAPI: NewModelsAPI(c, tok, logger),
		serverAPI: NewServerAPI(config, c, store, actionChan, logger),
		apiMux:    http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.modelsAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Every api function must pass through authentication first
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(apiMux))
	return server
}

// Handler returns the root handler of the API.
func (s *Server) Handler() http.Handler {
	return s.apiMux
}

// watchShutdown asks actionChan for a shutdown on SIGINT, SIGTERM or when ctx
// is done, and returns once either has happened.
func watchShutdown(ctx context.Context, logger *slog.Logger, actionChan chan<- string) {
	osSignalChan := make(chan os.Signal, 1)
	signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(osSignalChan)

	select {
	case <-osSignalChan:
		logger.Info("OS signal received, initiating shutdown.")
		select {
		case actionChan <- actionShutdown:
		case <-ctx.Done():
		}
	case <-ctx.Done():
		select {
		case actionChan <- actionShutdown:
		default:
		}
	}
}

// serve hosts the API until an OS signal or the shutdown endpoint asks it to stop.
func serve(ctx context.Context, config *Config, logger *slog.Logger) error {
	st, err := openStorage(config.Storage, logger)
	if err != nil {
		return err
	}
	defer func(st *storage) {
		logger.Info("Closing model store.")
		if err := st.Close(); err != nil {
			logger.Error("Failed to close model store", "error", err)
		}
	}(st)

	c := newClassifier(config.Model, logger)
	if err = c.Load(ctx, st.store, config.LabelNames()); err != nil {
		// Models trained later by the train command are picked up by /api/server/reload.
		logger.Warn("Starting without models", "error", err)
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	actionChan := make(chan string, 1)
	go watchShutdown(ctx, logger, actionChan)

	server := NewServer(config, logger, c, newTokenizer(config.Model), st.store, actionChan)
	apiHttpServer := &http.Server{
		Addr:              config.Server.ApiAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting api server", "address", apiHttpServer.Addr)
		if err := apiHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case action := <-actionChan:
		logger.Info("Stopping server for " + action + "...")
	case err = <-errChan:
		logger.Error("Api server failed", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = apiHttpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Api server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")
	return nil
}
