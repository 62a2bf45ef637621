package server

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/engines/memmap"
	"github.com/kolbkit/ckv/backend/engines/sqlite"
	"github.com/kolbkit/ckv/cbl"
	"github.com/kolbkit/ckv/facade"
	"github.com/kolbkit/ckv/internal/clog"
	"github.com/kolbkit/ckv/rpc/common"
	"github.com/kolbkit/ckv/rpc/serializer"
	"github.com/kolbkit/ckv/rpc/transport"
)

var Logger = clog.New("rpc/server", clog.ParseLevel("info"), nil)

// NewRPCServer creates a new RPC server. It takes a config, transport and
// serializer as parameters, and builds the single facade.Facade the
// server dispatches every request against.
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewJSONSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	Logger.Info("created rpc server")
	Logger.Info(config.String())

	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewFacadeServerAdapter(),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	facade     *facade.Facade
}

// registerTransportHandler wires the facade adapter into the transport's
// byte-in/byte-out handler. shardId is accepted but ignored: a server has
// exactly one facade, so nothing routes on it anymore.
func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(_ uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to deserialize request: %s", err),
			}
		} else {
			respMsg = *s.adapter.Handle(&msg, s.facade)
		}

		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			val, _ = s.serializer.Serialize(common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			})
		}
		return val
	})
}

// newBackend builds the backend.KVBackend named by s.config.Backend.
func (s *rpcServer) newBackend() (backend.KVBackend, error) {
	switch s.config.Backend {
	case "", "memmap":
		return memmap.New(&memmap.Options{NumShards: runtime.NumCPU()}), nil
	case "sqlite":
		path := s.config.DataDir
		if path == "" {
			path = ":memory:"
		}
		return sqlite.New(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", s.config.Backend)
	}
}

func (s *rpcServer) init(ctx context.Context) error {
	b, err := s.newBackend()
	if err != nil {
		return fmt.Errorf("failed to create backend: %w", err)
	}

	opts := cbl.Options{
		Cache:         s.config.CacheSize,
		WriteInterval: time.Duration(s.config.WriteIntervalMillisecond) * time.Millisecond,
		JSON:          s.config.UseJSONValueCodec,
	}

	layer := cbl.New(b, opts)
	s.facade = facade.New(layer)

	if err := s.facade.Init(ctx); err != nil {
		return fmt.Errorf("failed to init facade: %w", err)
	}

	Logger.Info("ckv rpc server setup completed", "backend", s.config.Backend)

	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server. It initializes the facade and transport
// layer, then blocks listening for incoming requests.
func (s *rpcServer) Serve() error {
	if err := s.init(context.Background()); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Shutdown flushes and closes the underlying facade. It does not stop the
// transport layer's Listen loop, which has no graceful-stop hook of its
// own.
func (s *rpcServer) Shutdown(ctx context.Context) error {
	if s.facade == nil {
		return nil
	}
	return s.facade.Shutdown(ctx)
}
