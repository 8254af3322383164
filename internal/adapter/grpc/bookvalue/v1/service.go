// Package bookvaluev1 defines the bookvalue.v1.ValuationService RPC surface.
// Every method takes and returns a google.protobuf.Struct so the service
// needs no generated message types; field names are snake_case.
package bookvaluev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "bookvalue.v1.ValuationService"

const (
	ValuationService_CheckAlerts_FullMethodName          = "/bookvalue.v1.ValuationService/CheckAlerts"
	ValuationService_GenerateSnapshots_FullMethodName    = "/bookvalue.v1.ValuationService/GenerateSnapshots"
	ValuationService_ListSnapshots_FullMethodName        = "/bookvalue.v1.ValuationService/ListSnapshots"
	ValuationService_CompareBatches_FullMethodName       = "/bookvalue.v1.ValuationService/CompareBatches"
	ValuationService_RefreshBook_FullMethodName          = "/bookvalue.v1.ValuationService/RefreshBook"
	ValuationService_SetAlertActive_FullMethodName       = "/bookvalue.v1.ValuationService/SetAlertActive"
	ValuationService_ListNotifications_FullMethodName    = "/bookvalue.v1.ValuationService/ListNotifications"
	ValuationService_MarkNotificationRead_FullMethodName = "/bookvalue.v1.ValuationService/MarkNotificationRead"
	ValuationService_AddBatchBooks_FullMethodName        = "/bookvalue.v1.ValuationService/AddBatchBooks"
	ValuationService_RemoveBatchBook_FullMethodName      = "/bookvalue.v1.ValuationService/RemoveBatchBook"
	ValuationService_RefreshUser_FullMethodName          = "/bookvalue.v1.ValuationService/RefreshUser"
)

// ValuationServiceServer is the server API for ValuationService
type ValuationServiceServer interface {
	CheckAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateSnapshots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListSnapshots(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CompareBatches(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetAlertActive(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddBatchBooks(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RemoveBatchBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedValuationServiceServer can be embedded to have forward compatible implementations
type UnimplementedValuationServiceServer struct{}

func (UnimplementedValuationServiceServer) CheckAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckAlerts not implemented")
}
func (UnimplementedValuationServiceServer) GenerateSnapshots(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GenerateSnapshots not implemented")
}
func (UnimplementedValuationServiceServer) ListSnapshots(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListSnapshots not implemented")
}
func (UnimplementedValuationServiceServer) CompareBatches(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CompareBatches not implemented")
}
func (UnimplementedValuationServiceServer) RefreshBook(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshBook not implemented")
}
func (UnimplementedValuationServiceServer) SetAlertActive(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SetAlertActive not implemented")
}
func (UnimplementedValuationServiceServer) ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListNotifications not implemented")
}
func (UnimplementedValuationServiceServer) MarkNotificationRead(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method MarkNotificationRead not implemented")
}
func (UnimplementedValuationServiceServer) AddBatchBooks(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method AddBatchBooks not implemented")
}
func (UnimplementedValuationServiceServer) RemoveBatchBook(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RemoveBatchBook not implemented")
}
func (UnimplementedValuationServiceServer) RefreshUser(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshUser not implemented")
}

// RegisterValuationServiceServer registers srv on s
func RegisterValuationServiceServer(s grpc.ServiceRegistrar, srv ValuationServiceServer) {
	s.RegisterService(&ValuationService_ServiceDesc, srv)
}

type unaryMethod func(ValuationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// handler adapts a typed method to grpc.MethodHandler, routing through the
// server's interceptor chain when one is installed
func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ValuationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		next := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ValuationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}

// ValuationService_ServiceDesc is the grpc.ServiceDesc for ValuationService
var ValuationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValuationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CheckAlerts",
			Handler:    handler(ValuationService_CheckAlerts_FullMethodName, ValuationServiceServer.CheckAlerts),
		},
		{
			MethodName: "GenerateSnapshots",
			Handler:    handler(ValuationService_GenerateSnapshots_FullMethodName, ValuationServiceServer.GenerateSnapshots),
		},
		{
			MethodName: "ListSnapshots",
			Handler:    handler(ValuationService_ListSnapshots_FullMethodName, ValuationServiceServer.ListSnapshots),
		},
		{
			MethodName: "CompareBatches",
			Handler:    handler(ValuationService_CompareBatches_FullMethodName, ValuationServiceServer.CompareBatches),
		},
		{
			MethodName: "RefreshBook",
			Handler:    handler(ValuationService_RefreshBook_FullMethodName, ValuationServiceServer.RefreshBook),
		},
		{
			MethodName: "SetAlertActive",
			Handler:    handler(ValuationService_SetAlertActive_FullMethodName, ValuationServiceServer.SetAlertActive),
		},
		{
			MethodName: "ListNotifications",
			Handler:    handler(ValuationService_ListNotifications_FullMethodName, ValuationServiceServer.ListNotifications),
		},
		{
			MethodName: "MarkNotificationRead",
			Handler:    handler(ValuationService_MarkNotificationRead_FullMethodName, ValuationServiceServer.MarkNotificationRead),
		},
		{
			MethodName: "AddBatchBooks",
			Handler:    handler(ValuationService_AddBatchBooks_FullMethodName, ValuationServiceServer.AddBatchBooks),
		},
		{
			MethodName: "RemoveBatchBook",
			Handler:    handler(ValuationService_RemoveBatchBook_FullMethodName, ValuationServiceServer.RemoveBatchBook),
		},
		{
			MethodName: "RefreshUser",
			Handler:    handler(ValuationService_RefreshUser_FullMethodName, ValuationServiceServer.RefreshUser),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// ValuationServiceClient is the client API for ValuationService
type ValuationServiceClient interface {
	CheckAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GenerateSnapshots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListSnapshots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CompareBatches(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SetAlertActive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListNotifications(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	MarkNotificationRead(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AddBatchBooks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RemoveBatchBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type valuationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewValuationServiceClient creates a client on an established connection
func NewValuationServiceClient(cc grpc.ClientConnInterface) ValuationServiceClient {
	return &valuationServiceClient{cc}
}

func (c *valuationServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *valuationServiceClient) CheckAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_CheckAlerts_FullMethodName, in, opts)
}

func (c *valuationServiceClient) GenerateSnapshots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_GenerateSnapshots_FullMethodName, in, opts)
}

func (c *valuationServiceClient) ListSnapshots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_ListSnapshots_FullMethodName, in, opts)
}

func (c *valuationServiceClient) CompareBatches(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_CompareBatches_FullMethodName, in, opts)
}

func (c *valuationServiceClient) RefreshBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_RefreshBook_FullMethodName, in, opts)
}

func (c *valuationServiceClient) SetAlertActive(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_SetAlertActive_FullMethodName, in, opts)
}

func (c *valuationServiceClient) ListNotifications(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_ListNotifications_FullMethodName, in, opts)
}

func (c *valuationServiceClient) MarkNotificationRead(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_MarkNotificationRead_FullMethodName, in, opts)
}

func (c *valuationServiceClient) AddBatchBooks(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_AddBatchBooks_FullMethodName, in, opts)
}

func (c *valuationServiceClient) RemoveBatchBook(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_RemoveBatchBook_FullMethodName, in, opts)
}

func (c *valuationServiceClient) RefreshUser(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ValuationService_RefreshUser_FullMethodName, in, opts)
}
