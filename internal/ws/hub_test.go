package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/models"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Expected websocket connection, got %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// nextMessage reads frames until a message of the wanted type arrives
func nextMessage(t *testing.T, conn *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Expected %s message, got %v", wantType, err)
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			var msg map[string]interface{}
			if err := json.Unmarshal(line, &msg); err != nil {
				t.Fatalf("Expected JSON message, got %q", line)
			}
			if msg["type"] == wantType {
				return msg
			}
		}
	}
}

func TestHub_BroadcastsComputedResult(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "")
	nextMessage(t, conn, TypeConnected)

	if got := hub.GetConnectedClientsCount(); got != 1 {
		t.Errorf("Expected 1 client, got %d", got)
	}

	hub.NotifyIndexComputed(models.QualityStatus{
		Kind:                 models.KindFieldMonitoring,
		RecordID:             7,
		SiteID:               "ST-01",
		VariableCount:        5,
		CompositeCoefficient: "0.74",
		QualityClass:         ica.Acceptable,
	})

	msg := nextMessage(t, conn, TypeICAResult)
	data, ok := msg["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %v", msg["data"])
	}
	if data["quality_class"] != "ACCEPTABLE" {
		t.Errorf("Expected ACCEPTABLE, got %v", data["quality_class"])
	}
	if data["composite_coefficient"] != "0.74" {
		t.Errorf("Expected composite 0.74, got %v", data["composite_coefficient"])
	}
}

func TestHub_FiltersBySite(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "?site_id=ST-02")
	nextMessage(t, conn, TypeConnected)

	hub.NotifyIndexComputed(models.QualityStatus{SiteID: "ST-01", QualityClass: ica.Good, CompositeCoefficient: "0.95"})
	hub.NotifyIndexComputed(models.QualityStatus{SiteID: "ST-02", QualityClass: ica.Poor, CompositeCoefficient: "0.40"})

	msg := nextMessage(t, conn, TypeICAResult)
	data := msg["data"].(map[string]interface{})
	if data["site_id"] != "ST-02" {
		t.Errorf("Expected only ST-02 results, got %v", data["site_id"])
	}
}

func TestHub_BroadcastsRejection(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "")
	nextMessage(t, conn, TypeConnected)

	err := &ica.Error{Kind: ica.ErrInvalidDomainValue, Field: "conductivity", Value: "0"}
	hub.NotifyIndexRejected(models.KindDischargeMonitoring, "DP-1", err)

	msg := nextMessage(t, conn, TypeError)
	data := msg["data"].(map[string]interface{})
	if data["error_kind"] != "invalid_domain_value" {
		t.Errorf("Expected invalid_domain_value, got %v", data["error_kind"])
	}
	if !errors.Is(err, ica.ErrInvalidDomainValue) {
		t.Error("Expected error to unwrap to its kind")
	}
}
