package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/homecrate/homecrate/internal/inventory"
	"github.com/homecrate/homecrate/internal/metrics"
	"github.com/homecrate/homecrate/internal/query"
)

// --- Huma Input/Output types ---

type ExecuteBody struct {
	Op     string          `json:"op" doc:"Operation name" required:"true" minLength:"1"`
	Args   json.RawMessage `json:"args,omitempty" doc:"Typed operation arguments"`
	Fields []string        `json:"fields,omitempty" doc:"Result fields to return; empty selects all"`
}

type ExecuteInput struct {
	Body ExecuteBody
}

type executeResponse struct {
	Data  map[string]any `json:"data,omitempty" doc:"Shaped operation result"`
	Error *ErrorObject   `json:"error,omitempty" doc:"Set instead of data when the operation failed"`
}

type ExecuteOutput struct {
	Status int
	Body   executeResponse
}

// --- Handler ---

// QueryHandler serves the single query/mutation document endpoint.
type QueryHandler struct {
	executor *query.Executor
	logger   *slog.Logger
}

func NewQueryHandler(executor *query.Executor, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{executor: executor, logger: logger}
}

func registerQueryRoutes(api huma.API, h *QueryHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "execute",
		Method:      http.MethodPost,
		Path:        "/v1",
		Summary:     "Execute one query or mutation document",
		Tags:        []string{"inventory"},
	}, h.Execute)
}

// Execute runs one document. The operation either fully succeeds with a
// shaped result or reports exactly one typed error — never a mixture.
func (h *QueryHandler) Execute(ctx context.Context, input *ExecuteInput) (*ExecuteOutput, error) {
	data, err := h.executor.Execute(ctx, query.Request{
		Op:     input.Body.Op,
		Args:   input.Body.Args,
		Fields: input.Body.Fields,
	})
	if err != nil {
		obj, status := classify(err)
		metrics.ObserveOperation(input.Body.Op, obj.Kind)
		var su *inventory.StoreUnavailableError
		if errors.As(err, &su) {
			h.logger.Error("store unavailable", "op", input.Body.Op, "error", err)
		}
		return &ExecuteOutput{Status: status, Body: executeResponse{Error: &obj}}, nil
	}

	metrics.ObserveOperation(input.Body.Op, "ok")
	return &ExecuteOutput{Status: http.StatusOK, Body: executeResponse{Data: data}}, nil
}
