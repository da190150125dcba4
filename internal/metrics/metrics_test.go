package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestHelpersRecordAfterRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	before := testutil.ToFloat64(scraperRestarts)
	IncScraperRestart()
	if got := testutil.ToFloat64(scraperRestarts); got != before+1 {
		t.Fatalf("restarts counter = %v, want %v", got, before+1)
	}
	IncCommentTrigger()
	IncCommentOutcome("completed")
	ObserveCommentWait(1.5)
	SetSupervisorState("running", true)
	IncTick()
	if got := testutil.ToFloat64(supervisorState.WithLabelValues("running")); got != 1 {
		t.Fatalf("state gauge = %v, want 1", got)
	}
}
