// Package respond holds the small HTTP helpers shared by the API handlers.
package respond

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"cashflow_sim/pkg/core/logger"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// CORS sets the headers for local front-end development and answers
// preflight requests. It returns true when the request is fully handled.
func CORS(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

// Method rejects requests whose method is not allowed.
func Method(w http.ResponseWriter, r *http.Request, allowed string) bool {
	if r.Method != allowed {
		w.Header().Set("Allow", allowed)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// DecodeJSON reads a JSON body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("Failed to encode response", zap.Error(err))
	}
}
