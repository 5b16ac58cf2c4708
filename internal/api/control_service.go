package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

// ControlServiceName is the fully-qualified gRPC service name.
const ControlServiceName = "airport.v1.ControlService"

// ControlServer is the server API for the control service. Command
// requests are Structs with camelCase fields; every reply is a Struct
// holding the JSON form of a CommandResult or Snapshot.
type ControlServer interface {
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StartNewGame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SaveGame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ResumeGame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	DeleteSave(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	HighScore(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AssignFlight(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PurchaseUpgrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TogglePause(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func newEmpty() *emptypb.Empty    { return new(emptypb.Empty) }
func newStruct() *structpb.Struct { return new(structpb.Struct) }

// unary builds the method descriptor for one RPC.
func unary[Req proto.Message](name string, newReq func() Req, call func(ControlServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ControlServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ControlServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(s, ctx, req.(Req))
			})
		},
	}
}

// ControlServiceDesc describes the control service for grpc.Server.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ControlServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetSnapshot", newEmpty, ControlServer.GetSnapshot),
		unary("StartNewGame", newEmpty, ControlServer.StartNewGame),
		unary("Reset", newEmpty, ControlServer.Reset),
		unary("SaveGame", newEmpty, ControlServer.SaveGame),
		unary("ResumeGame", newEmpty, ControlServer.ResumeGame),
		unary("DeleteSave", newEmpty, ControlServer.DeleteSave),
		unary("HighScore", newEmpty, ControlServer.HighScore),
		unary("AssignFlight", newStruct, ControlServer.AssignFlight),
		unary("PurchaseUpgrade", newStruct, ControlServer.PurchaseUpgrade),
		unary("TogglePause", newStruct, ControlServer.TogglePause),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "airport/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

// ControlClient is the client API for the control service.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient wraps cc.
func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ControlServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSnapshot", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) StartNewGame(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartNewGame", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) Reset(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Reset", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) SaveGame(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SaveGame", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) ResumeGame(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ResumeGame", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) DeleteSave(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "DeleteSave", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) HighScore(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "HighScore", &emptypb.Empty{}, opts...)
}

func (c *ControlClient) AssignFlight(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "AssignFlight", in, opts...)
}

func (c *ControlClient) PurchaseUpgrade(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "PurchaseUpgrade", in, opts...)
}

func (c *ControlClient) TogglePause(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "TogglePause", in, opts...)
}

// ControlService implements ControlServer over a Runtime.
type ControlService struct {
	ctl *controller
}

// NewControlService builds the gRPC control surface. tokens may be nil to
// accept unauthenticated commands.
func NewControlService(rt *runtime.Runtime, clock timectrl.SimClock, tokens *TokenIssuer, log logging.Logger) *ControlService {
	if log == nil {
		log = logging.Noop()
	}
	return &ControlService{ctl: &controller{rt: rt, clock: clock, tokens: tokens, log: log}}
}

// reply converts a controller outcome into an RPC response. Game-level
// rejections become ok=false results.
func reply(res CommandResult, err error) (*structpb.Struct, error) {
	if err != nil {
		if !commandError(err) {
			return nil, ToStatusError(err)
		}
		res = rejected(err)
	}
	out, convErr := toStruct(res)
	if convErr != nil {
		return nil, ToStatusError(convErr)
	}
	return out, nil
}

// commandGeneration reads the target generation from the token in the
// authorization metadata or from the request's generation field.
func (s *ControlService) commandGeneration(ctx context.Context, in *structpb.Struct) (uint64, error) {
	explicit, err := generationField(in)
	if err != nil {
		return 0, ToStatusError(err)
	}
	header := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		header = firstHeader(md, "authorization")
	}
	gen, err := s.ctl.authorize(header, explicit)
	if err != nil {
		return 0, ToStatusError(err)
	}
	return gen, nil
}

func (s *ControlService) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := toStruct(s.ctl.rt.Snapshot(s.ctl.clock.Now()))
	if err != nil {
		return nil, ToStatusError(err)
	}
	return out, nil
}

func (s *ControlService) StartNewGame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.startNewGame(ctx))
}

func (s *ControlService) Reset(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.reset(ctx))
}

func (s *ControlService) SaveGame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.save(ctx))
}

func (s *ControlService) ResumeGame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.resume(ctx))
}

func (s *ControlService) DeleteSave(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.deleteSave(ctx))
}

func (s *ControlService) HighScore(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return reply(s.ctl.highScore(ctx))
}

func (s *ControlService) AssignFlight(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	gen, err := s.commandGeneration(ctx, in)
	if err != nil {
		return nil, err
	}
	return reply(s.ctl.assign(ctx, gen, stringField(in, "flightId"), stringField(in, "gateId")))
}

func (s *ControlService) PurchaseUpgrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	gen, err := s.commandGeneration(ctx, in)
	if err != nil {
		return nil, err
	}
	return reply(s.ctl.purchase(ctx, gen, stringField(in, "upgradeId")))
}

func (s *ControlService) TogglePause(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	gen, err := s.commandGeneration(ctx, in)
	if err != nil {
		return nil, err
	}
	return reply(s.ctl.togglePause(ctx, gen))
}
