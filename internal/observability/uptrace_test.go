package observability

import (
	"context"
	"testing"

	"github.com/riskibarqy/touchline/internal/config"
	"github.com/riskibarqy/touchline/internal/platform/logging"
)

func TestInitUptrace_Disabled(t *testing.T) {
	cfg := config.Config{
		UptraceEnabled: false,
		ServiceName:    "touchline",
		ServiceVersion: "dev",
		AppEnv:         config.EnvDev,
	}

	base := logging.NewNop()
	logger, shutdown, err := InitUptrace(cfg, base)
	if err != nil {
		t.Fatalf("init uptrace: %v", err)
	}
	if logger != base {
		t.Fatalf("expected base logger when uptrace is disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown uptrace: %v", err)
	}
}
