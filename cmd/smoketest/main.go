package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/ws"
)

type APIResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

type WebSocketMessage struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Runs the ICA workflow against a live server: record a sample, receive its
// result over the websocket, then check the rejection path.
func main() {
	serverURL := flag.String("server", "http://localhost:8080", "Server base URL")
	flag.Parse()

	fmt.Println("🚀 Starting Hydro ICA Integration Test")
	fmt.Println(strings.Repeat("=", 60))

	client := &http.Client{Timeout: 5 * time.Second}
	if !isServerRunning(client, *serverURL) {
		log.Fatal("❌ Server is not running. Please start the server first with: go run ./cmd/server")
	}
	fmt.Println("✅ Server is running")

	if err := runWorkflow(client, *serverURL); err != nil {
		log.Fatalf("❌ Test failed: %v", err)
	}

	fmt.Println("\n🎉 All tests passed successfully!")
}

func isServerRunning(client *http.Client, serverURL string) bool {
	resp, err := client.Get(serverURL + "/api/v1/stats")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func runWorkflow(client *http.Client, serverURL string) error {
	// unique station so concurrent runs do not see each other's results
	stationID := "SMOKE-" + uuid.NewString()[:8]

	conn, err := dialWebSocket(serverURL, stationID)
	if err != nil {
		return fmt.Errorf("websocket connect failed: %w", err)
	}
	defer conn.Close()

	fmt.Println("\n📋 Test 1: Record Field Monitoring")
	body := fmt.Sprintf(`{"station_id": %q, "od": 80, "sst": 10, "dqo": 15, "ce": 100, "ph": 7.5, "n": 30, "p": 2}`, stationID)
	resp, status, err := postJSON(client, serverURL+"/api/v1/monitorings", body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("expected status 201, got %d: %s", status, resp.Error)
	}
	var created models.FieldMonitoringView
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		return fmt.Errorf("failed to parse record: %w", err)
	}
	if created.Index == nil || created.Index.CompositeCoefficient != "0.87" {
		return fmt.Errorf("expected composite 0.87, got %+v", created.Index)
	}
	fmt.Printf("   ✅ Record #%d stored with ICA %s (%s)\n", created.ID, created.Index.CompositeCoefficient, created.Index.QualityClass)

	fmt.Println("\n📋 Test 2: WebSocket Real-time Result")
	msg, err := waitForMessage(conn, ws.TypeICAResult, 5*time.Second)
	if err != nil {
		return err
	}
	var result models.QualityStatus
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return fmt.Errorf("failed to parse result: %w", err)
	}
	if result.RecordID != created.ID {
		return fmt.Errorf("expected result for record %d, got %d", created.ID, result.RecordID)
	}
	fmt.Printf("   ✅ Received %s for %s\n", msg.Type, result.SiteID)

	fmt.Println("\n📋 Test 3: Rejected Sample")
	body = fmt.Sprintf(`{"station_id": %q, "od": 80, "sst": 10, "dqo": 15, "ce": 0, "ph": 7.5}`, stationID)
	resp, status, err = postJSON(client, serverURL+"/api/v1/monitorings", body)
	if err != nil {
		return err
	}
	if status != http.StatusUnprocessableEntity || resp.ErrorKind != "invalid_domain_value" {
		return fmt.Errorf("expected 422 invalid_domain_value, got %d %s", status, resp.ErrorKind)
	}
	if _, err := waitForMessage(conn, ws.TypeError, 5*time.Second); err != nil {
		return err
	}
	fmt.Println("   ✅ Zero conductivity rejected and broadcast")

	fmt.Println("\n📋 Test 4: Read Back Record")
	getResp, err := client.Get(fmt.Sprintf("%s/api/v1/monitorings/%d", serverURL, created.ID))
	if err != nil {
		return fmt.Errorf("failed to get record: %w", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d", getResp.StatusCode)
	}
	fmt.Println("   ✅ Record retrievable by id")

	return nil
}

func dialWebSocket(serverURL, siteID string) (*websocket.Conn, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"site_id": {siteID}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	// welcome message
	if _, err := waitForMessage(conn, ws.TypeConnected, 5*time.Second); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func postJSON(client *http.Client, target, body string) (*APIResponse, int, error) {
	resp, err := client.Post(target, "application/json", bytes.NewBufferString(body))
	if err != nil {
		return nil, 0, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	var apiResp APIResponse
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response %q: %w", string(data), err)
	}
	return &apiResp, resp.StatusCode, nil
}

// waitForMessage reads frames until a message of the wanted type arrives.
// A frame may carry several newline-separated messages.
func waitForMessage(conn *websocket.Conn, wanted string, timeout time.Duration) (*WebSocketMessage, error) {
	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("waiting for %s message: %w", wanted, err)
		}
		for _, line := range bytes.Split(frame, []byte("\n")) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var msg WebSocketMessage
			if err := json.Unmarshal(line, &msg); err != nil {
				continue
			}
			if msg.Type == wanted {
				return &msg, nil
			}
		}
	}
}
