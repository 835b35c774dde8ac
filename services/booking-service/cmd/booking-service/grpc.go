package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const grpcServiceName = "salonbook.booking.v1.Booking"

// startGRPC serves the standard health service for mesh probes. Both the overall status and
// the named service report SERVING once the listener is up.
func startGRPC(ctx context.Context, logger *slog.Logger, port string) error {
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return err
	}

	srv, hs := grpcx.NewServer(logger, grpcServiceName)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(grpcServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		hs.Shutdown()
		srv.GracefulStop()
	}()

	return nil
}
