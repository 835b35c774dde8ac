package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestFetchSlotsSendsTenantAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/public/availability" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get(httpx.TenantHeader); got != "biz-1" {
			t.Errorf("tenant header = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["service_id"] != "svc" || body["date"] != "2026-01-28" {
			t.Errorf("unexpected body %v", body)
		}
		if _, leaked := body["Token"]; leaked {
			t.Errorf("token leaked into body")
		}
		_, _ = w.Write([]byte(`{"slots":[{"time":"09:00","available":true,"reason":"none"},{"time":"09:30","available":false,"reason":"booked"}]}`))
	}))
	defer srv.Close()

	slots, err := fetchSlots(context.Background(), srv.Client(), slotsQuery{
		BaseURL: srv.URL + "/", BusinessID: "biz-1", ProfessionalID: "pro", ServiceID: "svc", Date: "2026-01-28",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(slots) != 2 || slots[1].Reason != "booked" {
		t.Fatalf("unexpected slots %+v", slots)
	}

	var out bytes.Buffer
	if err := renderSlots(&out, slots, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out.String(), "09:00") || strings.Contains(out.String(), "09:30") {
		t.Fatalf("available-only rendering wrong:\n%s", out.String())
	}
}

func TestFetchSlotsSurfacesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"service_not_found"}`))
	}))
	defer srv.Close()

	_, err := fetchSlots(context.Background(), srv.Client(), slotsQuery{BaseURL: srv.URL, Token: "t"})
	if err == nil || !strings.Contains(err.Error(), "service_not_found") {
		t.Fatalf("expected service_not_found error, got %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, hs := grpcx.NewServer(nil, "salonbook.booking.v1.Booking")
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := checkHealth(ctx, lis.Addr().String(), "salonbook.booking.v1.Booking")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING before startup, got %s", status)
	}

	hs.SetServingStatus("salonbook.booking.v1.Booking", healthpb.HealthCheckResponse_SERVING)
	status, err = checkHealth(ctx, lis.Addr().String(), "salonbook.booking.v1.Booking")
	if err != nil || status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s err=%v", status, err)
	}
}

func TestTokenCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--business-id", "biz-7", "--secret", "s3cret"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	claims, err := auth.NewVerifier("s3cret").Verify(strings.TrimSpace(out.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.BusinessID != "biz-7" || claims.Role != "staff" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
		t.Fatalf("token should expire in the future: %v", claims.ExpiresAt)
	}
}
