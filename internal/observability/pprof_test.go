package observability

import (
	"context"
	"testing"

	"github.com/riskibarqy/touchline/internal/config"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

func TestStartPprofServer_Disabled(t *testing.T) {
	srv := StartPprofServer(config.Config{PprofEnabled: false}, logging.NewNop())
	if srv != nil {
		t.Fatalf("expected no server when pprof is disabled")
	}
	if err := StopPprofServer(context.Background(), srv, logging.NewNop()); err != nil {
		t.Fatalf("stop nil server: %v", err)
	}
}
