package hostrpc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/handle"
)

// Server exposes a bridge Manager as SceneService.
type Server struct {
	mgr    *bridge.Manager
	cfg    Config
	logger *slog.Logger

	streams atomic.Int64
	dropped atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a Server over mgr.
func NewServer(mgr *bridge.Manager, cfg *Config, opts ...Option) *Server {
	c := DefaultConfig()
	if cfg != nil {
		c.Merge(cfg)
	}

	s := &Server{
		mgr:    mgr,
		cfg:    c,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving every SceneService procedure.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(SetSizeProcedure, connect.NewUnaryHandler(SetSizeProcedure, s.setSize))
	mux.Handle(RenderProcedure, connect.NewUnaryHandler(RenderProcedure, s.byID(s.mgr.Render)))
	mux.Handle(ResetCameraProcedure, connect.NewUnaryHandler(ResetCameraProcedure, s.byID(s.mgr.ResetCamera)))
	mux.Handle(StartEventLoopProcedure, connect.NewUnaryHandler(StartEventLoopProcedure, s.byID(s.mgr.StartEventLoop)))
	mux.Handle(StopEventLoopProcedure, connect.NewUnaryHandler(StopEventLoopProcedure, s.byID(s.mgr.StopEventLoop)))
	mux.Handle(RemoveObserverProcedure, connect.NewUnaryHandler(RemoveObserverProcedure, s.removeObserver))
	mux.Handle(CapabilitiesProcedure, connect.NewUnaryHandler(CapabilitiesProcedure, s.capabilities))
	mux.Handle(WatchEventsProcedure, connect.NewServerStreamHandler(WatchEventsProcedure, s.watchEvents))
	return mux
}

// ListenAndServe listens on the configured address and serves until ctx
// is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down.
// Plain HTTP/1.1 and unencrypted HTTP/2 are both accepted so gRPC clients
// can connect without TLS.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		Protocols:         &protocols,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.logger.InfoContext(ctx, "rpc server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.WarnContext(ctx, "rpc server shutdown incomplete", "error", err)
		srv.Close()
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Streams returns the number of open WatchEvents streams.
func (s *Server) Streams() int { return int(s.streams.Load()) }

// Dropped returns how many events were discarded because a stream's
// buffer was full.
func (s *Server) Dropped() int64 { return s.dropped.Load() }

type idOperation func(ctx context.Context, id handle.ID) bool

// byID adapts a bridge operation that only takes an identifier.
func (s *Server) byID(op idOperation) func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BoolValue], error) {
	return func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BoolValue], error) {
		id, err := idArg(req.Msg, "id")
		if err != nil {
			return nil, connectError(err)
		}
		return boolResponse(op(ctx, id)), nil
	}
}

func (s *Server) setSize(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BoolValue], error) {
	id, err := idArg(req.Msg, "id")
	if err != nil {
		return nil, connectError(err)
	}
	width, err := intArg(req.Msg, "width")
	if err != nil {
		return nil, connectError(err)
	}
	height, err := intArg(req.Msg, "height")
	if err != nil {
		return nil, connectError(err)
	}
	return boolResponse(s.mgr.SetSize(ctx, id, int(width), int(height))), nil
}

func (s *Server) removeObserver(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[wrapperspb.BoolValue], error) {
	id, err := idArg(req.Msg, "id")
	if err != nil {
		return nil, connectError(err)
	}
	tag, err := intArg(req.Msg, "tag")
	if err != nil {
		return nil, connectError(err)
	}
	if tag < 0 {
		tag = 0
	}
	return boolResponse(s.mgr.RemoveObserver(ctx, id, uint64(tag))), nil
}

// capabilities answers {"capabilities": [names...]}.
func (s *Server) capabilities(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	id, err := idArg(req.Msg, "id")
	if err != nil {
		return nil, connectError(err)
	}

	caps, err := s.mgr.Capabilities(id)
	if err != nil {
		return nil, connectError(err)
	}

	values := make([]*structpb.Value, 0, len(caps))
	for _, c := range caps {
		values = append(values, structpb.NewStringValue(string(c)))
	}
	return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
		"capabilities": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}), nil
}
