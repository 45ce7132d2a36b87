package metrics

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// gatherCounter sums the counter samples of the named family
func gatherCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Expected gather to succeed, got %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestCollector_RecordComputation(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordComputation("field_monitoring", "GOOD", apd.New(95, -2))
	c.RecordComputation("field_monitoring", "GOOD", nil)

	if got := gatherCounter(t, reg, "test_ica_computations_total"); got != 2 {
		t.Errorf("Expected 2 computations, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var observed uint64
	for _, mf := range families {
		if mf.GetName() == "test_ica_composite_coefficient" {
			for _, m := range mf.GetMetric() {
				observed += m.GetHistogram().GetSampleCount()
			}
		}
	}
	if observed != 1 {
		t.Errorf("Expected 1 observed composite, got %d", observed)
	}
}

func TestCollector_RecordFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)

	c.RecordFailure("discharge_monitoring", "missing_required_input")
	c.RecordMQTTMessage("discharge_monitoring", "rejected")
	c.RecordMQTTMessage("field_monitoring", "stored")

	if got := gatherCounter(t, reg, "test_ica_computation_failures_total"); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := gatherCounter(t, reg, "test_mqtt_messages_total"); got != 2 {
		t.Errorf("Expected 2 MQTT messages, got %v", got)
	}
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	// Each registry accepts its own set of collectors without a duplicate registration panic
	NewCollector("test", prometheus.NewRegistry())
	NewCollector("test", prometheus.NewRegistry())
}
