package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "hotelbooking.v1.BookingService"

// BookingServer is the server side of hotelbooking.v1.BookingService. Every
// message is a google.protobuf.Struct so clients need no generated stubs.
type BookingServer interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelBooking(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(BookingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckAvailability", Handler: handler("CheckAvailability", BookingServer.CheckAvailability)},
		{MethodName: "CreateBooking", Handler: handler("CreateBooking", BookingServer.CreateBooking)},
		{MethodName: "GetBooking", Handler: handler("GetBooking", BookingServer.GetBooking)},
		{MethodName: "UpdateBooking", Handler: handler("UpdateBooking", BookingServer.UpdateBooking)},
		{MethodName: "CancelBooking", Handler: handler("CancelBooking", BookingServer.CancelBooking)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hotelbooking/v1/booking.proto",
}

func RegisterBookingServer(s grpc.ServiceRegistrar, srv BookingServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

func handler(name string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BookingServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(BookingServer), ctx, req.(*structpb.Struct))
		})
	}
}

// Client calls hotelbooking.v1.BookingService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Call(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
