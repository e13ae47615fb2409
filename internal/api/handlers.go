package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bankinsight/churn-insights/internal/models"
	"github.com/bankinsight/churn-insights/internal/services"
)

// filterRequest is the request body of the Summary and Insights methods.
type filterRequest struct {
	Filters models.PredicateSet `json:"filters"`
}

// Handler implements ChurnInsightsServer on top of the insight service.
type Handler struct {
	service *services.InsightService
	logger  *slog.Logger
}

// NewHandler constructs the gRPC facade.
func NewHandler(service *services.InsightService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Ready reports whether a dataset snapshot is loaded.
func (h *Handler) Ready() bool { return h.service.SnapshotID() != "" }

// QueryRecords returns a page of filtered customer records.
func (h *Handler) QueryRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.RecordsRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := h.service.Records(ctx, req)
	return h.respond(MethodQueryRecords, resp, err)
}

// Breakdown returns churn rates grouped by the requested dimensions.
func (h *Handler) Breakdown(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.BreakdownRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := h.service.Breakdown(ctx, req)
	return h.respond(MethodBreakdown, resp, err)
}

// Segments returns the risk-tier split of the filtered subset.
func (h *Handler) Segments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.SegmentsRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := h.service.Segments(ctx, req)
	return h.respond(MethodSegments, resp, err)
}

// Summary returns the key metrics of the filtered subset.
func (h *Handler) Summary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req filterRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := h.service.Summary(ctx, req.Filters)
	return h.respond(MethodSummary, resp, err)
}

// Insights returns cohort comparisons and the predictor ranking.
func (h *Handler) Insights(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req filterRequest
	if err := FromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := h.service.Insights(ctx, req.Filters)
	return h.respond(MethodInsights, resp, err)
}

// FilterOptions returns slider bounds and categorical values of the full table.
func (h *Handler) FilterOptions(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp, err := h.service.FilterOptions(ctx)
	return h.respond(MethodFilterOptions, resp, err)
}

func (h *Handler) respond(method string, resp any, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, StatusFromError(err)
	}
	out, err := ToStruct(resp)
	if err != nil {
		h.logger.Error("encode response failed", slog.String("method", method), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// StatusFromError maps service errors onto gRPC status codes.
func StatusFromError(err error) error {
	switch {
	case err == nil:
		return nil
	case services.IsInvalid(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, services.ErrNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// FromStruct decodes a Struct into a domain request. Unknown keys are rejected.
func FromStruct(in *structpb.Struct, out any) error {
	if in == nil || len(in.GetFields()) == 0 {
		return nil
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// ToStruct converts a domain value into a Struct via its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}
