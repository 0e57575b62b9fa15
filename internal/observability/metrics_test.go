package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/vidtube/vidtube-backend/internal/config"
)

func TestInitMetricsDisabled(t *testing.T) {
	cfg := &config.Config{OTELEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("init disabled metrics: %v", err)
	}
	if mp == nil {
		t.Fatal("expected a meter provider even when disabled")
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
}

func TestRecordHelpersAreSafeWithoutInit(t *testing.T) {
	metricsMu.Lock()
	saved := appMetrics
	appMetrics = nil
	metricsMu.Unlock()
	t.Cleanup(func() {
		metricsMu.Lock()
		appMetrics = saved
		metricsMu.Unlock()
	})

	ctx := context.Background()
	RecordAuthRegister(ctx, "success")
	RecordAuthLogin(ctx, "failure")
	RecordAuthRefresh(ctx, "stale")
	RecordAuthLogout(ctx, "success")
	RecordRepositoryOperation(ctx, "user", "create", "success")
}
