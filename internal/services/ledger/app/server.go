package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/objectledger/internal/platform/timeouts"
	ledgergrpc "github.com/louisbranch/objectledger/internal/services/ledger/api/grpc"
	ledgerhttp "github.com/louisbranch/objectledger/internal/services/ledger/api/http"
	"github.com/louisbranch/objectledger/internal/services/ledger/domain/engine"
	"github.com/louisbranch/objectledger/internal/services/ledger/relay"
	"github.com/louisbranch/objectledger/internal/services/ledger/service"
	"github.com/louisbranch/objectledger/internal/services/ledger/storage/redisstream"
)

// Server hosts the ledger gRPC and HTTP surfaces over one store.
type Server struct {
	cfg          Config
	backend      service.Backend
	svc          *service.Service
	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	httpListener net.Listener
	httpServer   *http.Server
	relay        *relay.Relay
	closers      []func() error
}

// New opens storage and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, backend: backend}
	s.closers = append(s.closers, backend.Close)
	if err := s.build(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build() error {
	svc, err := service.New(s.backend,
		service.WithTracer(otel.Tracer("objectledger/ledger")),
		service.WithObserver(logReceipt),
	)
	if err != nil {
		return err
	}
	s.svc = svc

	auth := ledgergrpc.Authenticator{Secret: []byte(strings.TrimSpace(s.cfg.JWTSecret)), Issuer: s.cfg.JWTIssuer}
	if len(auth.Secret) == 0 {
		log.Warn("LEDGER_AUTH_JWT_SECRET is empty: senders are trusted from the x-ledger-sender header")
	}
	s.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(auth.UnaryServerInterceptor()),
	)
	ledgergrpc.RegisterLedgerServer(s.grpcServer, ledgergrpc.NewServer(svc))
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ledgergrpc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	s.grpcListener, err = net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc on %s: %w", s.cfg.GRPCAddr, err)
	}
	s.closers = append(s.closers, closeListener(s.grpcListener))

	if strings.TrimSpace(s.cfg.HTTPAddr) != "" {
		s.httpListener, err = net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen http on %s: %w", s.cfg.HTTPAddr, err)
		}
		s.closers = append(s.closers, closeListener(s.httpListener))
		s.httpServer = &http.Server{
			Handler:           ledgerhttp.NewRouter(svc, ledgerhttp.Config{AllowOrigins: s.cfg.CORSOrigins}),
			ReadHeaderTimeout: timeouts.ReadHeader,
		}
	}

	if s.cfg.RelayEnabled() {
		client, err := redisstream.Dial(s.cfg.RedisURL)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, client.Close)
		publisher, err := redisstream.NewPublisher(client, s.cfg.RedisStream, redisstream.WithMaxLen(s.cfg.RedisMaxLen))
		if err != nil {
			return err
		}
		checkpoints, ok := s.backend.(relay.Checkpoints)
		if !ok {
			checkpoints = relay.NewMemoryCheckpoints()
		}
		s.relay = &relay.Relay{
			Source:      s.backend,
			Checkpoints: checkpoints,
			Publisher:   publisher,
			Name:        "redis:" + publisher.Stream(),
			Interval:    s.cfg.RelayInterval,
		}
	}
	return nil
}

func closeListener(l net.Listener) func() error {
	return func() error {
		if err := l.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	}
}

func logReceipt(_ context.Context, receipt engine.Receipt) {
	log.WithFields(log.Fields{
		"tx_id":  receipt.TxID,
		"tx_seq": receipt.TxSeq,
		"kind":   receipt.Kind,
		"sender": receipt.Sender,
		"events": len(receipt.Events),
	}).Info("transaction committed")
}

// Service returns the ledger service the transports share.
func (s *Server) Service() *service.Service {
	return s.svc
}

// GRPCAddr returns the bound gRPC address.
func (s *Server) GRPCAddr() string {
	return s.grpcListener.Addr().String()
}

// HTTPAddr returns the bound HTTP address, or "" when HTTP is off.
func (s *Server) HTTPAddr() string {
	if s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Serve runs every surface until ctx ends, then shuts them down.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", s.GRPCAddr()).Info("ledger grpc listening")
		if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve grpc: %w", err)
		}
		return nil
	})
	if s.httpServer != nil {
		g.Go(func() error {
			log.WithField("addr", s.HTTPAddr()).Info("ledger http listening")
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	if s.relay != nil {
		g.Go(func() error {
			return s.relay.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		s.shutdown()
		return nil
	})
	return g.Wait()
}

func (s *Server) shutdown() {
	s.health.Shutdown()
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}
	s.grpcServer.GracefulStop()
}

// Close releases storage and listeners.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Run serves cfg until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.WithError(err).Warn("close ledger server")
		}
	}()
	return server.Serve(ctx)
}
