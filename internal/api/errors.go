package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/homecrate/homecrate/internal/circuitbreaker"
	"github.com/homecrate/homecrate/internal/inventory"
	"github.com/homecrate/homecrate/internal/symbol"
)

// ErrorObject is the wire form of every failed operation: a stable kind
// plus a human-readable message. Kinds pass through from the core
// unchanged.
type ErrorObject struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// classify maps a core error onto its kind and HTTP status. Anything
// untyped is reported as a store failure: by the adapter's contract every
// other outcome carries one of the typed errors.
func classify(err error) (ErrorObject, int) {
	var (
		ve *inventory.ValidationError
		nf *inventory.NotFoundError
		ce *inventory.ConflictError
		de *symbol.DecodeError
		su *inventory.StoreUnavailableError
	)
	switch {
	case errors.As(err, &ve):
		return ErrorObject{Kind: inventory.KindValidation, Message: ve.Error()}, http.StatusBadRequest
	case errors.As(err, &nf):
		return ErrorObject{Kind: inventory.KindNotFound, Message: nf.Error()}, http.StatusNotFound
	case errors.As(err, &ce):
		return ErrorObject{Kind: inventory.KindConflict, Message: ce.Error()}, http.StatusConflict
	case errors.As(err, &de):
		return ErrorObject{Kind: inventory.KindDecode, Message: de.Error()}, http.StatusBadRequest
	case errors.As(err, &su):
		return ErrorObject{Kind: inventory.KindStoreUnavailable, Message: su.Error()}, http.StatusServiceUnavailable
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return ErrorObject{Kind: inventory.KindStoreUnavailable, Message: err.Error()}, http.StatusServiceUnavailable
	default:
		return ErrorObject{Kind: inventory.KindStoreUnavailable, Message: err.Error()}, http.StatusServiceUnavailable
	}
}

type errorResponse struct {
	Error ErrorObject `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: ErrorObject{Kind: kind, Message: msg}})
}
