package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/homecrate/homecrate/internal/inventory"
	"github.com/homecrate/homecrate/internal/storage"
	"github.com/homecrate/homecrate/internal/symbol"
)

// --- Huma Input/Output types ---

// LabelData is the printable-label contract: the payload is what an
// external rasterizer turns into a data-matrix image, and what a scanner
// hands back for resolution.
type LabelData struct {
	ID      uuid.UUID      `json:"id" doc:"Entity identifier"`
	Kind    inventory.Kind `json:"kind" doc:"Hierarchy level of the entity"`
	Payload string         `json:"payload" doc:"Self-contained symbol payload"`
}

type GetLabelInput struct {
	ID string `path:"id" doc:"Entity identifier" format:"uuid"`
}

type labelResponse struct {
	Data  *LabelData   `json:"data,omitempty"`
	Error *ErrorObject `json:"error,omitempty"`
}

type GetLabelOutput struct {
	Status int
	Body   labelResponse
}

type ResolveLabelInput struct {
	Body struct {
		Payload string `json:"payload" doc:"Scanned symbol payload" required:"true"`
	}
}

type ResolveLabelOutput struct {
	Status int
	Body   labelResponse
}

// --- Handler ---

// LabelHandler encodes entity ids into label payloads and resolves scanned
// payloads back to entities.
type LabelHandler struct {
	store  storage.Store
	logger *slog.Logger
}

func NewLabelHandler(store storage.Store, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{store: store, logger: logger}
}

func registerLabelRoutes(api huma.API, h *LabelHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-label",
		Method:      http.MethodGet,
		Path:        "/v1/labels/{id}",
		Summary:     "Encode an entity id into a label payload",
		Tags:        []string{"labels"},
	}, h.GetLabel)

	huma.Register(api, huma.Operation{
		OperationID: "resolve-label",
		Method:      http.MethodPost,
		Path:        "/v1/labels/resolve",
		Summary:     "Resolve a scanned payload to an entity",
		Tags:        []string{"labels"},
	}, h.ResolveLabel)
}

// GetLabel only encodes ids that resolve to a live entity, so a printed
// label always pointed at something real at print time.
func (h *LabelHandler) GetLabel(ctx context.Context, input *GetLabelInput) (*GetLabelOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		obj, status := classify(&inventory.ValidationError{Field: "id", Reason: "not a valid id"})
		return &GetLabelOutput{Status: status, Body: labelResponse{Error: &obj}}, nil
	}

	kind, err := h.store.ResolveKind(ctx, id)
	if err != nil {
		obj, status := classify(err)
		h.logFailure("encode label", err)
		return &GetLabelOutput{Status: status, Body: labelResponse{Error: &obj}}, nil
	}

	return &GetLabelOutput{
		Status: http.StatusOK,
		Body:   labelResponse{Data: &LabelData{ID: id, Kind: kind, Payload: symbol.Encode(id)}},
	}, nil
}

// ResolveLabel decodes a scanned payload and looks the id up. A corrupted
// payload reports a DECODE error; a payload whose id no longer exists
// reports NOT_FOUND.
func (h *LabelHandler) ResolveLabel(ctx context.Context, input *ResolveLabelInput) (*ResolveLabelOutput, error) {
	id, err := symbol.Decode(input.Body.Payload)
	if err != nil {
		obj, status := classify(err)
		return &ResolveLabelOutput{Status: status, Body: labelResponse{Error: &obj}}, nil
	}

	kind, err := h.store.ResolveKind(ctx, id)
	if err != nil {
		obj, status := classify(err)
		h.logFailure("resolve label", err)
		return &ResolveLabelOutput{Status: status, Body: labelResponse{Error: &obj}}, nil
	}

	return &ResolveLabelOutput{
		Status: http.StatusOK,
		Body:   labelResponse{Data: &LabelData{ID: id, Kind: kind, Payload: input.Body.Payload}},
	}, nil
}

func (h *LabelHandler) logFailure(op string, err error) {
	var su *inventory.StoreUnavailableError
	if errors.As(err, &su) {
		h.logger.Error("store unavailable", "op", op, "error", err)
	}
}
