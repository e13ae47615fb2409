package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "churn.v1.ChurnInsights"

// Method names of the ChurnInsights service.
const (
	MethodQueryRecords  = "QueryRecords"
	MethodBreakdown     = "Breakdown"
	MethodSegments      = "Segments"
	MethodSummary       = "Summary"
	MethodInsights      = "Insights"
	MethodFilterOptions = "FilterOptions"
)

// ChurnInsightsServer is the server API of the ChurnInsights service. Every
// message is a google.protobuf.Struct carrying the JSON form of the domain types.
type ChurnInsightsServer interface {
	QueryRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Breakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Segments(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Summary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Insights(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FilterOptions(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ChurnInsightsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChurnInsightsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChurnInsightsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the ChurnInsights service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChurnInsightsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodQueryRecords, Handler: unaryHandler(MethodQueryRecords, ChurnInsightsServer.QueryRecords)},
		{MethodName: MethodBreakdown, Handler: unaryHandler(MethodBreakdown, ChurnInsightsServer.Breakdown)},
		{MethodName: MethodSegments, Handler: unaryHandler(MethodSegments, ChurnInsightsServer.Segments)},
		{MethodName: MethodSummary, Handler: unaryHandler(MethodSummary, ChurnInsightsServer.Summary)},
		{MethodName: MethodInsights, Handler: unaryHandler(MethodInsights, ChurnInsightsServer.Insights)},
		{MethodName: MethodFilterOptions, Handler: unaryHandler(MethodFilterOptions, ChurnInsightsServer.FilterOptions)},
	},
	Streams: []grpc.StreamDesc{},
}

// ChurnInsightsClient calls the ChurnInsights service.
type ChurnInsightsClient struct {
	cc grpc.ClientConnInterface
}

// NewChurnInsightsClient wraps a client connection.
func NewChurnInsightsClient(cc grpc.ClientConnInterface) *ChurnInsightsClient {
	return &ChurnInsightsClient{cc: cc}
}

// Call invokes method with in and returns the response struct.
func (c *ChurnInsightsClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
