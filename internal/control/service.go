// Package control exposes the alert dispatcher to operators over gRPC.
//
// Messages are google.protobuf.Struct and Empty, so the service needs no
// generated code; the descriptor below is registered by hand.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"conferencia/painel/internal/types"
)

const ServiceName = "painel.alerts.v1.AlertControl"

// Dispatcher is what the service drives; *loop.Dispatcher satisfies it.
type Dispatcher interface {
	Snapshot() types.Snapshot
	ClearQueue()
	ResetSession()
	Scan(orders []types.Order) bool
}

type controlServer interface {
	Snapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ClearQueue(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type Server struct {
	d Dispatcher
}

func NewServer(d Dispatcher) *Server { return &Server{d: d} }

// Register attaches the service to s.
func Register(s *grpc.Server, srv *Server) {
	s.RegisterService(&serviceDesc, srv)
}

func (s *Server) Snapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.d.Snapshot())
}

func (s *Server) ClearQueue(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	log.Printf("[control] clear queue by %s", operatorFrom(ctx))
	s.d.ClearQueue()
	return toStruct(s.d.Snapshot())
}

// ResetSession requires {"confirm": true} in the request.
func (s *Server) ResetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if !req.GetFields()["confirm"].GetBoolValue() {
		return nil, status.Error(codes.FailedPrecondition, "reset re-arms every alert of this session; set confirm=true")
	}
	log.Printf("[control] session reset by %s", operatorFrom(ctx))
	s.d.ResetSession()
	return toStruct(s.d.Snapshot())
}

// Scan runs one scan over {"orders": [...]} using the backend's JSON shape.
func (s *Server) Scan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var body struct {
		Orders []types.Order `json:"orders"`
	}
	if err := fromStruct(req, &body); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "orders: %v", err)
	}
	submitted := s.d.Scan(body.Orders)
	return toStruct(map[string]any{"submitted": submitted, "snapshot": s.d.Snapshot()})
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("empty message")
	}
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(controlServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Snapshot"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(controlServer).Snapshot(ctx, req.(*emptypb.Empty))
	})
}

// structHandler builds the handler for the Struct-in/Struct-out methods.
func structHandler(method string, call func(controlServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(controlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(controlServer), ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*controlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "ClearQueue", Handler: structHandler("ClearQueue", controlServer.ClearQueue)},
		{MethodName: "ResetSession", Handler: structHandler("ResetSession", controlServer.ResetSession)},
		{MethodName: "Scan", Handler: structHandler("Scan", controlServer.Scan)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "painel/alerts/v1/control.proto",
}
