// Package solverrpc exposes a solver.Solver over gRPC and provides the
// matching client.
package solverrpc

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/solver"
)

const (
	serviceName = "cubescan.solver.v1.Solver"
	solveMethod = "/" + serviceName + "/Solve"
)

// SolverServer is the server side of the solver service.
type SolverServer interface {
	Solve(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes the solver service. The request carries the facelet
// string and the response the move sequence, both as StringValue.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Solve",
			Handler:    solveHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cubescan/solver/v1/solver.proto",
}

func solveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).Solve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: solveMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SolverServer).Solve(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv SolverServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server adapts a solver.Solver to SolverServer.
type Server struct {
	solver solver.Solver
	logger *zap.Logger
}

// NewServer wraps s for use with Register.
func NewServer(s solver.Solver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{solver: s, logger: logger.Named("solver_rpc")}
}

// Solve implements SolverServer.
func (s *Server) Solve(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	solution, err := s.solver.Solve(ctx, req.GetValue())
	if err != nil {
		code := codeFor(err)
		if code != codes.InvalidArgument {
			wrapped := logging.NewOperationError("solverrpc.solve", "", err)
			s.logger.Error("solve failed", append(logging.ErrorFields(wrapped), zap.String("code", code.String()))...)
		}
		return nil, status.Error(code, err.Error())
	}
	return wrapperspb.String(solution), nil
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, solver.ErrInvalidState):
		return codes.InvalidArgument
	case errors.Is(err, solver.ErrSolverUnavailable):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// Serve runs a gRPC server for s on lis until ctx is done, then stops it
// gracefully.
func Serve(ctx context.Context, lis net.Listener, s solver.Solver, logger *zap.Logger) error {
	gs := grpc.NewServer()
	Register(gs, NewServer(s, logger))

	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()

	logger.Info("solver rpc listening", zap.String("addr", lis.Addr().String()))
	if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return logging.NewOperationError("solverrpc.serve", "", err)
	}
	return nil
}
