package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teemow/mailresponder/internal/instrumentation"
)

func newProvider(t *testing.T, enabled bool) *instrumentation.Provider {
	t.Helper()
	ctx := context.Background()
	provider, err := instrumentation.NewProvider(ctx, instrumentation.Config{
		ServiceName:     "mailresponder-test",
		ServiceVersion:  "test",
		Enabled:         enabled,
		MetricsExporter: instrumentation.ExporterPrometheus,
		TracingExporter: instrumentation.ExporterNone,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })
	return provider
}

// createTestProvider returns an enabled provider exporting to Prometheus.
func createTestProvider(t *testing.T) *instrumentation.Provider {
	return newProvider(t, true)
}

func TestNewMetricsServer(t *testing.T) {
	tests := []struct {
		name        string
		addr        string
		provider    func(t *testing.T) *instrumentation.Provider
		wantAddr    string
		errContains string
	}{
		{
			name:     "explicit address",
			addr:     ":9464",
			provider: createTestProvider,
			wantAddr: ":9464",
		},
		{
			name:     "default address",
			provider: createTestProvider,
			wantAddr: DefaultMetricsAddr,
		},
		{
			name:        "missing provider",
			provider:    func(*testing.T) *instrumentation.Provider { return nil },
			errContains: "instrumentation provider is required",
		},
		{
			name:        "instrumentation disabled",
			provider:    func(t *testing.T) *instrumentation.Provider { return newProvider(t, false) },
			errContains: "not enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(MetricsServerConfig{
				Addr:                    tt.addr,
				Enabled:                 true,
				InstrumentationProvider: tt.provider(t),
			})

			if tt.errContains != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q does not contain %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if srv.Addr() != tt.wantAddr {
				t.Errorf("Addr() = %q, want %q", srv.Addr(), tt.wantAddr)
			}
		})
	}
}

func TestMetricsServer_ExposesTriageMetrics(t *testing.T) {
	provider := createTestProvider(t)
	srv, err := NewMetricsServer(MetricsServerConfig{Enabled: true, InstrumentationProvider: provider})
	if err != nil {
		t.Fatalf("NewMetricsServer() error = %v", err)
	}

	provider.Metrics().RecordTriageStep(context.Background(),
		instrumentation.StepDraft, instrumentation.StatusFallback, 250*time.Millisecond)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "triage_step_total") {
		t.Error("expected triage_step_total in scrape output")
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	srv, err := NewMetricsServer(MetricsServerConfig{Enabled: true, InstrumentationProvider: createTestProvider(t)})
	if err != nil {
		t.Fatalf("NewMetricsServer() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
