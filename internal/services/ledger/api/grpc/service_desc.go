package ledgergrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ledger.v1.LedgerService"

// Method names.
const (
	MethodSubmit          = "Submit"
	MethodGetProposalInfo = "GetProposalInfo"
	MethodGetRegistryInfo = "GetRegistryInfo"
	MethodHasVoted        = "HasVoted"
	MethodListEvents      = "ListEvents"
)

// FullMethod returns the wire path of a method, e.g. /ledger.v1.LedgerService/Submit.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LedgerServer is the server API for ledger.v1.LedgerService.
type LedgerServer interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProposalInfo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRegistryInfo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HasVoted(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterLedgerServer registers srv on s.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryHandler(method string, call func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes ledger.v1.LedgerService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodSubmit, LedgerServer.Submit),
		unaryHandler(MethodGetProposalInfo, LedgerServer.GetProposalInfo),
		unaryHandler(MethodGetRegistryInfo, LedgerServer.GetRegistryInfo),
		unaryHandler(MethodHasVoted, LedgerServer.HasVoted),
		unaryHandler(MethodListEvents, LedgerServer.ListEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}
