package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/markovlang/pkg/classify"
	"github.com/CTAG07/markovlang/pkg/corpus"
)

// maxBodySize bounds the text accepted by a single request.
const maxBodySize = 8 << 20

// ModelsAPI holds the dependencies for the model and classification handlers.
type ModelsAPI struct {
	classifier *classify.Classifier
	tokenizer  *corpus.Tokenizer
	logger     *slog.Logger
}

// NewModelsAPI creates a new instance of the ModelsAPI.
func NewModelsAPI(c *classify.Classifier, tok *corpus.Tokenizer, logger *slog.Logger) *ModelsAPI {
	return &ModelsAPI{
		classifier: c,
		tokenizer:  tok,
		logger:     logger,
	}
}

// RegisterRoutes sets up the routing for the /api/models and /api/classify endpoints.
func (m *ModelsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", m.handleListModels)
	mux.HandleFunc("/api/models/", m.handleModelByLabel)
	mux.HandleFunc("/api/classify", m.handleClassify)
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

type ClassifyRequest struct {
	Text string `json:"text"`
}

// SentenceResult is the classification of one sentence of a request.
type SentenceResult struct {
	Symbols []string         `json:"symbols"`
	Label   string           `json:"label"`
	Scores  []classify.Score `json:"scores"`
}

type ClassifyResponse struct {
	Sentences []SentenceResult `json:"sentences"`
}

// handleListModels handles GET for listing every label's models.
func (m *ModelsAPI) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, m.classifier.Stats())
}

// handleModelByLabel routes actions for a specific label, e.g., train, prune.
func (m *ModelsAPI) handleModelByLabel(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	label := parts[0]

	if label == "" {
		respondWithError(w, http.StatusBadRequest, "Label not specified")
		return
	}

	stats, ok := m.classifier.LabelStats(label)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Label not found")
		return
	}

	if len(parts) == 1 { // Path is just /api/models/{label}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		respondWithJSON(w, http.StatusOK, stats)
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		sentences, err := m.tokenizer.Sentences(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Could not read text: %v", err))
			return
		}
		for _, sentence := range sentences {
			if err = m.classifier.Learn(label, sentence); err != nil {
				m.logger.Error("Failed to train label", "label", label, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
				return
			}
		}
		m.logger.Info("Label trained via API", "label", label, "sentences", len(sentences))
		w.WriteHeader(http.StatusAccepted)

	case "prune":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req PruneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		removed, err := m.classifier.PruneLabel(label, req.MinFreq)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Pruning failed: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int{"removed": removed})

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleClassify labels every sentence of the posted text.
func (m *ModelsAPI) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req ClassifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	sentences, err := m.tokenizer.Sentences(strings.NewReader(req.Text))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Could not read text: %v", err))
		return
	}
	if len(sentences) == 0 {
		respondWithError(w, http.StatusBadRequest, "Text contains no words")
		return
	}

	resp := ClassifyResponse{Sentences: make([]SentenceResult, 0, len(sentences))}
	for _, sentence := range sentences {
		label, scores, err := m.classifier.Classify(sentence)
		if err != nil {
			if errors.Is(err, classify.ErrNoLabels) {
				respondWithError(w, http.StatusServiceUnavailable, "No models are loaded")
				return
			}
			m.logger.Error("Failed to classify sentence", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Classification failed: %v", err))
			return
		}
		resp.Sentences = append(resp.Sentences, SentenceResult{Symbols: sentence, Label: label, Scores: scores})
	}
	respondWithJSON(w, http.StatusOK, resp)
}
