package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, errorBody{Code: status, Message: msg})
}

// decodeJSON decodes the request body, rejecting unknown fields so client
// mistakes surface as 400s instead of silently dropped options.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
