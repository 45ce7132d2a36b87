package mqtt

import (
	"errors"
	"sync"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rpereza/hydro-back-sub001/config"
	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/services"
	"github.com/rpereza/hydro-back-sub001/internal/store"
)

func newTestClient() (*Client, *store.Store) {
	memStore := store.NewStore(100)
	collector := metrics.NewCollector("test", prometheus.NewRegistry())
	svc := services.NewMonitoringService(memStore, collector)
	cfg := config.MQTTConfig{
		BrokerURL:         "tcp://127.0.0.1:1",
		ClientID:          "test",
		TopicFieldSamples: "hydro/stations/+/samples",
		TopicDischarges:   "hydro/discharges/+/samples",
		TopicResults:      "hydro/ica/results",
	}
	client := NewClient(cfg, svc, collector)
	svc.AddNotifier(client)
	return client, memStore
}

func TestTopicWildcard(t *testing.T) {
	tests := []struct {
		pattern  string
		topic    string
		expected string
	}{
		{"hydro/stations/+/samples", "hydro/stations/ST-01/samples", "ST-01"},
		{"hydro/stations/+/samples", "hydro/stations/ST-01/other", ""},
		{"hydro/stations/+/samples", "hydro/stations/samples", ""},
		{"hydro/samples", "hydro/samples", ""},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := TopicWildcard(tt.pattern, tt.topic); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestClient_HandleFieldSample(t *testing.T) {
	client, memStore := newTestClient()

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr bool
	}{
		{"json payload", "hydro/stations/ST-01/samples", `{"od":80,"sst":10,"dqo":15,"ce":500,"ph":7.5}`, false},
		{"csv payload", "hydro/stations/ST-02/samples", "80,10,15,100,7.5,30,2", false},
		{"malformed csv", "hydro/stations/ST-02/samples", "80,10", true},
		{"engine rejection", "hydro/stations/ST-03/samples", `{"od":80,"sst":10,"dqo":15,"ce":0,"ph":7.5}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.HandleFieldSample(tt.topic, []byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}

	latest := memStore.GetLatestByStation()
	if len(latest) != 2 {
		t.Fatalf("Expected 2 stations stored, got %d", len(latest))
	}
	if latest["ST-02"].Index.VariableCount != 6 {
		t.Errorf("Expected six-variable index for ST-02, got %d", latest["ST-02"].Index.VariableCount)
	}
}

type testMessage struct {
	topic   string
	payload []byte
}

func (m testMessage) Duplicate() bool   { return false }
func (m testMessage) Qos() byte         { return 1 }
func (m testMessage) Retained() bool    { return false }
func (m testMessage) Topic() string     { return m.topic }
func (m testMessage) MessageID() uint16 { return 0 }
func (m testMessage) Payload() []byte   { return m.payload }
func (m testMessage) Ack()              {}

var _ paho.Message = testMessage{}

func TestClient_SampleHandlersErrorReporting(t *testing.T) {
	client, _ := newTestClient()

	var mu sync.Mutex
	var reported []error
	client.SetErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})

	tests := []struct {
		name         string
		handler      func(paho.Client, paho.Message)
		msg          testMessage
		wantReported int
	}{
		{"engine rejection stays site scoped", client.fieldSampleHandler,
			testMessage{"hydro/stations/ST-03/samples", []byte(`{"od":80,"sst":10,"dqo":15,"ce":0,"ph":7.5}`)}, 0},
		{"missing discharge input stays site scoped", client.dischargeSampleHandler,
			testMessage{"hydro/discharges/DP-1/samples", []byte(`{"od":60,"sst":10,"dqo":15,"ce":500}`)}, 0},
		{"malformed payload is reported", client.fieldSampleHandler,
			testMessage{"hydro/stations/ST-03/samples", []byte("80,10")}, 1},
		{"valid sample", client.fieldSampleHandler,
			testMessage{"hydro/stations/ST-04/samples", []byte("80,10,15,500,7.5")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mu.Lock()
			reported = nil
			mu.Unlock()

			tt.handler(nil, tt.msg)

			mu.Lock()
			defer mu.Unlock()
			if len(reported) != tt.wantReported {
				t.Errorf("Expected %d reported errors, got %d: %v", tt.wantReported, len(reported), reported)
			}
		})
	}
}

func TestClient_HandleDischargeSample(t *testing.T) {
	client, memStore := newTestClient()

	if err := client.HandleDischargeSample("hydro/discharges/DP-1/samples", []byte("60,10,15,500,7.5")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	err := client.HandleDischargeSample("hydro/discharges/DP-1/samples", []byte(`{"od":60,"sst":10,"dqo":15,"ce":500}`))
	if !errors.Is(err, ica.ErrMissingRequiredInput) {
		t.Errorf("Expected missing input error, got %v", err)
	}

	recent := memStore.GetDischargeMonitoringsByPoint("DP-1", 0)
	if len(recent) != 1 {
		t.Fatalf("Expected 1 stored discharge, got %d", len(recent))
	}
	if recent[0].Index.QualityClass != ica.Fair {
		t.Errorf("Expected FAIR, got %s", recent[0].Index.QualityClass)
	}
}

func TestClient_NotifyWhileDisconnected(t *testing.T) {
	client, _ := newTestClient()

	if client.IsConnected() {
		t.Fatal("Expected client to be disconnected")
	}
	// Publishing without a broker is a no-op
	client.NotifyIndexRejected("field_monitoring", "ST-01", errors.New("boom"))
}
