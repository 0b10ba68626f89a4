package solverrpc

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/solver"
)

// Client is a solver.Solver backed by a remote solver service.
type Client struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
}

var _ solver.Solver = (*Client)(nil)

// Dial connects to a solver service at addr. The connection is established
// lazily, so an unreachable server surfaces as solver.ErrSolverUnavailable
// on the first Solve rather than here.
func Dial(addr string, logger *zap.Logger, opts ...grpc.DialOption) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		wrapped := logging.NewOperationError("solverrpc.dial", "", err)
		logger.Error("failed to dial solver", zap.Error(wrapped), zap.String("addr", addr))
		return nil, wrapped
	}
	return &Client{conn: conn, logger: logger.Named("solver_client")}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Solve implements solver.Solver.
func (c *Client) Solve(ctx context.Context, facelets string) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, solveMethod, wrapperspb.String(facelets), out); err != nil {
		mapped := errorFor(err)
		c.logger.Warn("remote solve failed", zap.Error(mapped))
		return "", logging.NewOperationError("solverrpc.solve", "", mapped)
	}
	return out.GetValue(), nil
}

func errorFor(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", solver.ErrSolver, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", solver.ErrInvalidState, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", solver.ErrSolverUnavailable, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", solver.ErrSolver, st.Code(), st.Message())
	}
}
