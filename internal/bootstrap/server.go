package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelbooking/config"
	"github.com/Domenick1991/hotelbooking/internal/grpcapi"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or a
// server fails.
func Run(ctx context.Context, cfg *config.Config, router http.Handler, bookingSvc booking.BookingUseCase) error {
	s := newServers(cfg, router, bookingSvc)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	return s.serve(ctx, lis)
}

func newServers(cfg *config.Config, router http.Handler, bookingSvc booking.BookingUseCase) *Servers {
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcapi.UnaryLogging()))
	grpcapi.RegisterBookingServer(grpcSrv, grpcapi.NewServer(bookingSvc))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
	}
}

func (s *Servers) serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 2)

	go func() {
		log.Printf("gRPC listening on %s", lis.Addr())
		errCh <- s.grpcServer.Serve(lis)
	}()
	go func() {
		log.Printf("HTTP listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		_ = s.httpServer.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
