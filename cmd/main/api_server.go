package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/markovlang/pkg/classify"
	"github.com/CTAG07/markovlang/pkg/markov"
)

const actionShutdown = "shutdown"

// ServerAPI holds the dependencies for the server management handlers.
type ServerAPI struct {
	config     *Config
	classifier *classify.Classifier
	store      markov.Store
	actionChan chan string
	logger     *slog.Logger
}

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(config *Config, c *classify.Classifier, store markov.Store, actionChan chan string, logger *slog.Logger) *ServerAPI {
	return &ServerAPI{
		config:     config,
		classifier: c,
		store:      store,
		actionChan: actionChan,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/version", a.handleVersion)
	mux.HandleFunc("/api/server/save", a.handleSave)
	mux.HandleFunc("/api/server/reload", a.handleReload)
	mux.HandleFunc("/api/server/shutdown", a.handleShutdown)
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// handleSave writes every in-memory model to the configured store.
func (a *ServerAPI) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := a.classifier.Save(r.Context(), a.store); err != nil {
		a.logger.Error("Failed to save models", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Save failed: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReload replaces the in-memory models with the stored ones.
func (a *ServerAPI) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := a.classifier.Load(r.Context(), a.store, a.config.LabelNames()); err != nil {
		a.logger.Error("Failed to reload models", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Reload failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, a.classifier.Stats())
}

// handleShutdown initiates a graceful shutdown of the server.
func (a *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.logger.Warn("Shutdown initiated via API")
	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Server is shutting down..."})

	go func() {
		a.actionChan <- actionShutdown
	}()
}
