package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/yaroslav/nassession/models"
)

func resetRegistry() {
	initialized = false
	Registry = prometheus.NewRegistry()
}

func TestInit(t *testing.T) {
	resetRegistry()

	if err := Init(); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	if !initialized {
		t.Error("Expected initialized to be true after Init()")
	}
}

func TestInit_MultipleCallsAreIdempotent(t *testing.T) {
	resetRegistry()

	if err := Init(); err != nil {
		t.Fatalf("First Init() failed: %v", err)
	}

	if err := Init(); err != nil {
		t.Errorf("Second Init() returned error: %v", err)
	}
}

func TestMustInit(t *testing.T) {
	resetRegistry()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustInit() panicked: %v", r)
		}
	}()

	MustInit()
}

func TestSessionMetrics_Registration(t *testing.T) {
	testRegistry := prometheus.NewRegistry()
	originalRegistry := Registry
	Registry = testRegistry
	defer func() { Registry = originalRegistry }()

	if err := registerSessionMetrics(); err != nil {
		t.Fatalf("registerSessionMetrics() failed: %v", err)
	}

	LoginAttempts.WithLabelValues(LoginMethodToken, ResultSuccess).Inc()

	families, err := testRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := false
	for _, family := range families {
		if family.GetName() == "nassession_login_attempts_total" {
			found = true
		}
	}
	if !found {
		t.Error("login attempts counter not gathered")
	}
}

func TestSetFailoverStatus(t *testing.T) {
	SetFailoverStatus(models.FailoverMaster)

	if v := gaugeValue(t, FailoverStatus.WithLabelValues(string(models.FailoverMaster))); v != 1 {
		t.Errorf("MASTER gauge = %v, want 1", v)
	}
	if v := gaugeValue(t, FailoverStatus.WithLabelValues(string(models.FailoverBackup))); v != 0 {
		t.Errorf("BACKUP gauge = %v, want 0", v)
	}

	SetFailoverStatus(models.FailoverBackup)
	if v := gaugeValue(t, FailoverStatus.WithLabelValues(string(models.FailoverMaster))); v != 0 {
		t.Errorf("MASTER gauge after change = %v, want 0", v)
	}
}

func TestSetConnected(t *testing.T) {
	SetConnected(true)
	if v := gaugeValue(t, ChannelConnected); v != 1 {
		t.Errorf("connected gauge = %v, want 1", v)
	}
	SetConnected(false)
	if v := gaugeValue(t, ChannelConnected); v != 0 {
		t.Errorf("connected gauge = %v, want 0", v)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("failed to read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}
