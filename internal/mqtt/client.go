package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rpereza/hydro-back-sub001/config"
	"github.com/rpereza/hydro-back-sub001/internal/ica"
	"github.com/rpereza/hydro-back-sub001/internal/metrics"
	"github.com/rpereza/hydro-back-sub001/internal/models"
	"github.com/rpereza/hydro-back-sub001/internal/services"
)

// Client wraps the MQTT client with sample ingestion and result publishing
type Client struct {
	client       mqtt.Client
	cfg          config.MQTTConfig
	parser       *services.SampleParser
	service      *services.MonitoringService
	metrics      *metrics.Collector
	errorHandler func(error)
	isConnected  atomic.Bool
	subscribed   atomic.Bool
}

// ResultMessage is published on the results topic for every processed sample
type ResultMessage struct {
	Status    string                `json:"status"` // "computed" or "rejected"
	Result    *models.QualityStatus `json:"result,omitempty"`
	Kind      models.RecordKind     `json:"kind,omitempty"`
	SiteID    string                `json:"site_id,omitempty"`
	ErrorKind string                `json:"error_kind,omitempty"`
	Error     string                `json:"error,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

// NewClient creates a new MQTT client feeding samples into service. collector may be nil.
func NewClient(cfg config.MQTTConfig, service *services.MonitoringService, collector *metrics.Collector) *Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetPingTimeout(cfg.PingTimeout)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(cfg.ConnectRetry)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := &Client{
		cfg:     cfg,
		parser:  services.NewSampleParser(),
		service: service,
		metrics: collector,
	}

	// Set connection handlers
	opts.SetDefaultPublishHandler(client.defaultMessageHandler)
	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)

	client.client = mqtt.NewClient(opts)

	return client
}

// Connect establishes connection to MQTT broker
func (c *Client) Connect() error {
	log.Printf("📡 Connecting to MQTT broker %s...", c.cfg.BrokerURL)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("✅ Successfully connected to MQTT broker")
	c.isConnected.Store(true)
	return nil
}

// Disconnect closes the MQTT connection
func (c *Client) Disconnect() {
	if c.isConnected.Load() {
		c.client.Disconnect(250)
		c.isConnected.Store(false)
		log.Println("Disconnected from MQTT broker")
	}
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected.Load() && c.client.IsConnected()
}

// SetErrorHandler sets the callback function for errors
func (c *Client) SetErrorHandler(handler func(error)) {
	c.errorHandler = handler
}

// SubscribeToSamples subscribes to the field and discharge sample topics
func (c *Client) SubscribeToSamples() error {
	handlers := map[string]mqtt.MessageHandler{
		c.cfg.TopicFieldSamples: c.fieldSampleHandler,
		c.cfg.TopicDischarges:   c.dischargeSampleHandler,
	}

	for topic, handler := range handlers {
		if token := c.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
		}
		log.Printf("📡 Subscribed to topic: %s", topic)
	}

	c.subscribed.Store(true)
	return nil
}

func (c *Client) fieldSampleHandler(_ mqtt.Client, msg mqtt.Message) {
	if err := c.HandleFieldSample(msg.Topic(), msg.Payload()); err != nil {
		c.sampleFailed(err)
	}
}

func (c *Client) dischargeSampleHandler(_ mqtt.Client, msg mqtt.Message) {
	if err := c.HandleDischargeSample(msg.Topic(), msg.Payload()); err != nil {
		c.sampleFailed(err)
	}
}

// sampleFailed reports ingestion errors. Engine rejections already reached
// the sample's site listeners through NotifyIndexRejected.
func (c *Client) sampleFailed(err error) {
	if ica.IsComputeError(err) {
		return
	}
	c.reportError(err)
}

// HandleFieldSample parses a station sample received on topic and records it.
// JSON payloads are preferred; comma-separated values are accepted as a fallback.
func (c *Client) HandleFieldSample(topic string, payload []byte) error {
	kind := string(models.KindFieldMonitoring)
	stationID := TopicWildcard(c.cfg.TopicFieldSamples, topic)
	log.Printf("Received field sample on topic %s: %s", topic, string(payload))

	var rec *models.FieldMonitoring
	if isJSON(payload) {
		parsed, err := c.parser.ParseFieldJSON(payload, stationID)
		if err != nil {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("field sample parsing failed: %w", err)
		}
		rec = parsed
	} else {
		raw, err := c.parser.ParseSampleString(string(payload))
		if err != nil {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("field sample parsing failed: %w", err)
		}
		if stationID == "" {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("field sample on %s has no station ID", topic)
		}
		rec = models.NewFieldMonitoring(stationID, time.Now().UTC(), raw)
	}

	if err := c.service.RecordFieldMonitoring(rec); err != nil {
		c.recordMessage(kind, "rejected")
		return err
	}
	c.recordMessage(kind, "stored")
	return nil
}

// HandleDischargeSample parses a discharge sample received on topic and records it.
func (c *Client) HandleDischargeSample(topic string, payload []byte) error {
	kind := string(models.KindDischargeMonitoring)
	pointID := TopicWildcard(c.cfg.TopicDischarges, topic)
	log.Printf("Received discharge sample on topic %s: %s", topic, string(payload))

	var rec *models.DischargeMonitoring
	if isJSON(payload) {
		parsed, err := c.parser.ParseDischargeJSON(payload, pointID)
		if err != nil {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("discharge sample parsing failed: %w", err)
		}
		rec = parsed
	} else {
		raw, err := c.parser.ParseSampleString(string(payload))
		if err != nil {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("discharge sample parsing failed: %w", err)
		}
		if pointID == "" {
			c.recordMessage(kind, "invalid")
			return fmt.Errorf("discharge sample on %s has no discharge point ID", topic)
		}
		rec = models.NewDischargeMonitoring(pointID, "", time.Now().UTC(), nil, raw)
	}

	if err := c.service.RecordDischargeMonitoring(rec); err != nil {
		c.recordMessage(kind, "rejected")
		return err
	}
	c.recordMessage(kind, "stored")
	return nil
}

// NotifyIndexComputed publishes a computed result on the results topic
func (c *Client) NotifyIndexComputed(status models.QualityStatus) {
	c.publishResult(ResultMessage{
		Status:    "computed",
		Result:    &status,
		Timestamp: time.Now().UTC(),
	})
}

// NotifyIndexRejected publishes a rejected computation on the results topic
func (c *Client) NotifyIndexRejected(kind models.RecordKind, siteID string, err error) {
	c.publishResult(ResultMessage{
		Status:    "rejected",
		Kind:      kind,
		SiteID:    siteID,
		ErrorKind: ica.KindName(err),
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (c *Client) publishResult(msg ResultMessage) {
	if c.cfg.TopicResults == "" || !c.IsConnected() {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("⚠️  Failed to marshal result message: %v", err)
		return
	}

	token := c.client.Publish(c.cfg.TopicResults, 1, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("⚠️  Failed to publish result to %s: %v", c.cfg.TopicResults, token.Error())
		}
	}()
}

// TopicWildcard returns the topic level matched by the single-level wildcard
// "+" of pattern, or "" when pattern has none or topic does not match it.
func TopicWildcard(pattern, topic string) string {
	patternLevels := strings.Split(pattern, "/")
	topicLevels := strings.Split(topic, "/")
	if len(patternLevels) != len(topicLevels) {
		return ""
	}

	match := ""
	for i, level := range patternLevels {
		switch level {
		case "+":
			if match == "" {
				match = topicLevels[i]
			}
		case topicLevels[i]:
		default:
			return ""
		}
	}
	return match
}

func isJSON(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func (c *Client) recordMessage(kind, status string) {
	if c.metrics != nil {
		c.metrics.RecordMQTTMessage(kind, status)
	}
}

func (c *Client) reportError(err error) {
	log.Printf("❌ %v", err)
	if c.errorHandler != nil {
		c.errorHandler(err)
	}
}

// defaultMessageHandler handles messages on unsubscribed topics
func (c *Client) defaultMessageHandler(_ mqtt.Client, msg mqtt.Message) {
	log.Printf("Received message on unhandled topic %s: %s", msg.Topic(), string(msg.Payload()))
}

// onConnect callback when connection is established
func (c *Client) onConnect(_ mqtt.Client) {
	log.Println("✅ MQTT client connected")
	c.isConnected.Store(true)

	// clean sessions drop subscriptions on reconnect
	if c.subscribed.Load() {
		go func() {
			if err := c.SubscribeToSamples(); err != nil {
				c.reportError(err)
			}
		}()
	}
}

// onConnectionLost callback when connection is lost
func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("⚠️  MQTT connection lost: %v", err)
	c.isConnected.Store(false)

	if c.errorHandler != nil {
		c.errorHandler(fmt.Errorf("MQTT connection lost: %w", err))
	}
}
