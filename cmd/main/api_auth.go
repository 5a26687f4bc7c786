package main

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// authHeader carries the API key of a request.
const authHeader = "markovlang-auth"

// AuthAPI guards the API with a single shared key.
type AuthAPI struct {
	keyHash [32]byte
	open    bool
	logger  *slog.Logger
}

// NewAuthAPI returns an AuthAPI for key. An empty key leaves the API open.
func NewAuthAPI(key string, logger *slog.Logger) *AuthAPI {
	return &AuthAPI{
		keyHash: sha256.Sum256([]byte(key)),
		open:    key == "",
		logger:  logger,
	}
}

// Authenticate checks for the configured key in the "markovlang-auth" header
// before passing the request on.
func (a *AuthAPI) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.open {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(authHeader)
		if apiKey == "" {
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		hash := sha256.Sum256([]byte(apiKey))
		if subtle.ConstantTimeCompare(hash[:], a.keyHash[:]) != 1 {
			a.logger.Warn("Rejected request with an invalid API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			respondWithError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
