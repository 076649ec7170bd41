// Package mqtt publishes fleet events (bridge discovery, parameter changes)
// to one or more MQTT brokers, and accepts parameter write requests back.
package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"bridgectl/config"
)

// DebugLogger is an interface for debug logging.
type DebugLogger interface {
	LogMQTT(format string, args ...interface{})
}

var debugLog DebugLogger

// SetDebugLogger sets the debug logger for MQTT.
func SetDebugLogger(logger DebugLogger) {
	debugLog = logger
}

func logMQTT(format string, args ...interface{}) {
	if debugLog != nil {
		debugLog.LogMQTT(format, args...)
	}
}

// writeJob represents a pending parameter write operation.
type writeJob struct {
	client    pahomqtt.Client
	rootTopic string
	bridge    string
	param     string
	value     interface{}
	handler   WriteHandler
	presetErr error // set when the job should short-circuit straight to an error response
}

// MaxWriteWorkers is the maximum number of concurrent write goroutines per publisher.
const MaxWriteWorkers = 5

// MaxWriteQueueSize is the maximum number of pending write jobs per publisher.
const MaxWriteQueueSize = 100

// Publisher handles a single MQTT broker connection and publishes fleet
// events for it.
type Publisher struct {
	config  *config.MQTTConfig
	client  pahomqtt.Client
	running bool
	mu      sync.RWMutex

	// lastValues tracks the last published value per bridge/param, to
	// suppress redundant republishing.
	lastValues map[string]interface{}
	lastMu     sync.RWMutex

	writeHandler  WriteHandler
	bridgeNames   []string // bridges to subscribe for write requests

	writeQueue chan writeJob
	wg         sync.WaitGroup
	stopChan   chan struct{}
}

// EventMessage is the JSON structure published for a discovery or
// parameter-change event.
type EventMessage struct {
	Topic     string      `json:"topic"`
	Bridge    string      `json:"bridge"`
	Param     string      `json:"param,omitempty"`
	Value     interface{} `json:"value"`
	Kind      string      `json:"kind"` // "discovered", "param"
	Timestamp string      `json:"timestamp"`
}

// WriteRequest is the JSON structure for an incoming parameter write.
type WriteRequest struct {
	Topic  string      `json:"topic"`
	Bridge string      `json:"bridge"`
	Param  string       `json:"param"`
	Value  interface{} `json:"value"`
}

// WriteResponse is the JSON structure for a parameter write result.
type WriteResponse struct {
	Topic     string      `json:"topic"`
	Bridge    string      `json:"bridge"`
	Param     string      `json:"param"`
	Value     interface{} `json:"value"`
	Success   bool        `json:"success"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// WriteHandler performs a parameter mutation against a bridge, e.g. via
// paramspace.Set. Returns an error if the write fails.
type WriteHandler func(bridge, param string, value interface{}) error

// NewPublisher creates a new MQTT publisher for a single broker.
func NewPublisher(cfg *config.MQTTConfig) *Publisher {
	return &Publisher{
		config:     cfg,
		lastValues: make(map[string]interface{}),
		writeQueue: make(chan writeJob, MaxWriteQueueSize),
		stopChan:   make(chan struct{}),
	}
}

// Name returns the publisher's name.
func (p *Publisher) Name() string {
	return p.config.Name
}

// IsRunning returns whether the publisher is connected.
func (p *Publisher) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Start connects to the MQTT broker.
func (p *Publisher) Start() error {
	p.mu.RLock()
	if p.running {
		p.mu.RUnlock()
		return nil
	}
	p.mu.RUnlock()

	opts := pahomqtt.NewClientOptions()

	if p.config.UseTLS {
		opts.AddBroker(fmt.Sprintf("ssl://%s:%d", p.config.Broker, p.config.Port))
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port))
	}

	opts.SetClientID(p.config.ClientID)

	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	client := pahomqtt.NewClient(opts)
	logMQTT("Attempting to connect to MQTT broker %s:%d", p.config.Broker, p.config.Port)

	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		logMQTT("MQTT connection timeout")
		return fmt.Errorf("connection timeout")
	}
	if token.Error() != nil {
		logMQTT("MQTT connection error: %v", token.Error())
		return token.Error()
	}

	logMQTT("Successfully connected to MQTT broker %s:%d", p.config.Broker, p.config.Port)

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		client.Disconnect(100)
		return nil
	}
	p.client = client
	p.running = true
	p.mu.Unlock()

	p.lastMu.Lock()
	p.lastValues = make(map[string]interface{})
	p.lastMu.Unlock()

	p.startWriteWorkers()
	p.subscribeWriteTopics()

	return nil
}

func (p *Publisher) startWriteWorkers() {
	for i := 0; i < MaxWriteWorkers; i++ {
		p.wg.Add(1)
		go p.writeWorker()
	}
}

func (p *Publisher) writeWorker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case job, ok := <-p.writeQueue:
			if !ok {
				return
			}
			var writeErr error
			switch {
			case job.presetErr != nil:
				writeErr = job.presetErr
			case job.handler != nil:
				logMQTT("Executing write: %s/%s = %v", job.bridge, job.param, job.value)
				writeErr = job.handler(job.bridge, job.param, job.value)
				if writeErr != nil {
					logMQTT("Write error: %v", writeErr)
				} else {
					logMQTT("Write successful")
				}
			default:
				writeErr = fmt.Errorf("no write handler configured")
			}
			p.publishWriteResponse(job.client, job.rootTopic, job.bridge, job.param, job.value, writeErr)
		}
	}
}

// Stop disconnects from the MQTT broker.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if !p.running || p.client == nil {
		p.mu.Unlock()
		return
	}

	p.running = false
	client := p.client
	p.client = nil

	oldStopChan := p.stopChan
	p.stopChan = make(chan struct{})
	p.writeQueue = make(chan writeJob, MaxWriteQueueSize)
	p.mu.Unlock()

	close(oldStopChan)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		logMQTT("Timeout waiting for write workers to stop")
	}

	if client != nil {
		client.Disconnect(500)
	}
}

// BuildTopic constructs the event topic for a bridge/param pair. An empty
// param builds the bridge-level (discovery) topic.
func (p *Publisher) BuildTopic(bridge, param string) string {
	if param == "" {
		return fmt.Sprintf("%s/%s", p.config.Name, bridge)
	}
	return fmt.Sprintf("%s/%s/params/%s", p.config.Name, bridge, param)
}

// PublishDiscovery announces a discovered bridge.
func (p *Publisher) PublishDiscovery(bridge string, info interface{}) bool {
	return p.publish(bridge, "", "discovered", info, true)
}

// PublishParam publishes a parameter value if it has changed since the
// last publish, unless force is set.
func (p *Publisher) PublishParam(bridge, param string, value interface{}, force bool) bool {
	return p.publish(bridge, param, "param", value, force)
}

func (p *Publisher) publish(bridge, param, kind string, value interface{}, force bool) bool {
	p.mu.RLock()
	running := p.running
	client := p.client
	p.mu.RUnlock()

	if !running || client == nil {
		return false
	}

	cacheKey := fmt.Sprintf("%s/%s/%s", kind, bridge, param)

	p.lastMu.RLock()
	lastValue, exists := p.lastValues[cacheKey]
	p.lastMu.RUnlock()

	if exists && !force && fmt.Sprintf("%v", lastValue) == fmt.Sprintf("%v", value) {
		return false
	}

	msg := EventMessage{
		Topic:     p.config.Name,
		Bridge:    bridge,
		Param:     param,
		Value:     value,
		Kind:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return false
	}

	topic := p.BuildTopic(bridge, param)
	token := client.Publish(topic, 1, true, payload)

	if !token.WaitTimeout(2 * time.Second) {
		return false
	}
	if token.Error() != nil {
		return false
	}

	p.lastMu.Lock()
	p.lastValues[cacheKey] = value
	p.lastMu.Unlock()

	return true
}

// Address returns the broker address string.
func (p *Publisher) Address() string {
	if p.config.UseTLS {
		return fmt.Sprintf("ssl://%s:%d", p.config.Broker, p.config.Port)
	}
	return fmt.Sprintf("tcp://%s:%d", p.config.Broker, p.config.Port)
}

// Config returns the publisher's configuration.
func (p *Publisher) Config() *config.MQTTConfig {
	return p.config
}

// SetWriteHandler sets the callback for handling parameter write requests.
func (p *Publisher) SetWriteHandler(handler WriteHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeHandler = handler
}

// SetBridgeNames sets the bridges to subscribe for write requests.
func (p *Publisher) SetBridgeNames(names []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bridgeNames = names
}

func (p *Publisher) subscribeWriteTopics() {
	p.mu.RLock()
	client := p.client
	bridgeNames := p.bridgeNames
	rootTopic := p.config.Name
	p.mu.RUnlock()

	if client == nil {
		logMQTT("subscribeWriteTopics: client is nil")
		return
	}
	if len(bridgeNames) == 0 {
		logMQTT("subscribeWriteTopics: no bridges configured")
		return
	}

	for _, bridge := range bridgeNames {
		topic := fmt.Sprintf("%s/%s/write", rootTopic, bridge)
		logMQTT("Subscribing to write topic: %s", topic)
		token := client.Subscribe(topic, 1, p.handleWriteMessage)
		if !token.WaitTimeout(2*time.Second) || token.Error() != nil {
			if token.Error() != nil {
				logMQTT("Subscribe error for %s: %v", topic, token.Error())
			} else {
				logMQTT("Subscribe timeout for %s", topic)
			}
			continue
		}
		logMQTT("Subscribed to: %s", topic)
	}
}

func (p *Publisher) handleWriteMessage(client pahomqtt.Client, msg pahomqtt.Message) {
	logMQTT("Received write request on topic: %s", msg.Topic())
	logMQTT("Payload: %s", string(msg.Payload()))

	p.mu.RLock()
	handler := p.writeHandler
	rootTopic := p.config.Name
	p.mu.RUnlock()

	var req WriteRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		logMQTT("JSON parse error: %v", err)
		p.queueErrorResponse(client, rootTopic, "", "", nil, fmt.Errorf("invalid JSON: %v", err))
		return
	}

	if req.Topic != rootTopic {
		p.queueErrorResponse(client, rootTopic, req.Bridge, req.Param, req.Value,
			fmt.Errorf("topic mismatch: expected %s, got %s", rootTopic, req.Topic))
		return
	}

	job := writeJob{
		client:    client,
		rootTopic: rootTopic,
		bridge:    req.Bridge,
		param:     req.Param,
		value:     req.Value,
		handler:   handler,
	}
	select {
	case p.writeQueue <- job:
	default:
		logMQTT("Write queue full, rejecting write for %s/%s", req.Bridge, req.Param)
		go p.publishWriteResponse(client, rootTopic, req.Bridge, req.Param, req.Value,
			fmt.Errorf("write queue full, try again later"))
	}
}

func (p *Publisher) queueErrorResponse(client pahomqtt.Client, rootTopic, bridge, param string, value interface{}, err error) {
	job := writeJob{
		client:    client,
		rootTopic: rootTopic,
		bridge:    bridge,
		param:     param,
		value:     value,
		presetErr: err,
	}
	select {
	case p.writeQueue <- job:
	default:
		logMQTT("Write queue full, dropping error response for %s/%s", bridge, param)
	}
}

func (p *Publisher) publishWriteResponse(client pahomqtt.Client, rootTopic, bridge, param string, value interface{}, err error) {
	resp := WriteResponse{
		Topic:     rootTopic,
		Bridge:    bridge,
		Param:     param,
		Value:     value,
		Success:   err == nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		resp.Error = err.Error()
	}

	payload, _ := json.Marshal(resp)

	responseTopic := fmt.Sprintf("%s/%s/write/response", rootTopic, bridge)
	if bridge == "" {
		responseTopic = fmt.Sprintf("%s/write/response", rootTopic)
	}
	token := client.Publish(responseTopic, 1, false, payload)
	token.WaitTimeout(2 * time.Second)
}

// Manager manages multiple MQTT publishers.
type Manager struct {
	publishers   map[string]*Publisher
	mu           sync.RWMutex
	writeHandler WriteHandler
	bridgeNames  []string
}

// NewManager creates a new MQTT manager.
func NewManager() *Manager {
	return &Manager{
		publishers: make(map[string]*Publisher),
	}
}

// Add adds a publisher to the manager.
func (m *Manager) Add(pub *Publisher) {
	m.mu.Lock()
	m.publishers[pub.Name()] = pub
	handler := m.writeHandler
	bridgeNames := m.bridgeNames
	m.mu.Unlock()

	if handler != nil {
		pub.SetWriteHandler(handler)
	}
	if len(bridgeNames) > 0 {
		pub.SetBridgeNames(bridgeNames)
	}
}

// Remove removes a publisher by name.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	pub, exists := m.publishers[name]
	if exists {
		delete(m.publishers, name)
	}
	m.mu.Unlock()

	if exists {
		pub.Stop()
	}
}

// Get returns a publisher by name.
func (m *Manager) Get(name string) *Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publishers[name]
}

// List returns all publishers.
func (m *Manager) List() []*Publisher {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		result = append(result, pub)
	}
	return result
}

// StartAll starts all publishers configured as enabled. Returns the
// number of publishers successfully started.
func (m *Manager) StartAll() int {
	m.mu.RLock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.RUnlock()

	started := 0
	for _, pub := range pubs {
		if pub.config.Enabled && !pub.IsRunning() {
			logMQTT("Auto-starting MQTT publisher: %s", pub.Name())
			if err := pub.Start(); err != nil {
				logMQTT("Failed to auto-start %s: %v", pub.Name(), err)
			} else {
				logMQTT("Successfully started %s (%s)", pub.Name(), pub.Address())
				started++
			}
		}
	}
	return started
}

// StopAll stops all publishers.
func (m *Manager) StopAll() {
	m.mu.RLock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.RUnlock()

	for _, pub := range pubs {
		pub.Stop()
	}
}

// PublishDiscovery announces a discovered bridge on every running publisher.
func (m *Manager) PublishDiscovery(bridge string, info interface{}) {
	m.mu.RLock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.RUnlock()

	for _, pub := range pubs {
		if pub.IsRunning() {
			pub.PublishDiscovery(bridge, info)
		}
	}
}

// PublishParam publishes a parameter value change on every running publisher.
func (m *Manager) PublishParam(bridge, param string, value interface{}, force bool) {
	m.mu.RLock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.RUnlock()

	if len(pubs) == 0 {
		logMQTT("Manager.PublishParam: no publishers configured")
		return
	}

	runningCount := 0
	for _, pub := range pubs {
		if pub.IsRunning() {
			runningCount++
			pub.PublishParam(bridge, param, value, force)
		}
	}
	if runningCount == 0 {
		logMQTT("Manager.PublishParam: no publishers running")
	}
}

// AnyRunning returns true if any publisher is running.
func (m *Manager) AnyRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, pub := range m.publishers {
		if pub.IsRunning() {
			return true
		}
	}
	return false
}

// LoadFromConfig creates publishers from configuration.
func (m *Manager) LoadFromConfig(cfgs []config.MQTTConfig) {
	for i := range cfgs {
		pub := NewPublisher(&cfgs[i])
		m.Add(pub)
	}
}

// SetWriteHandler sets the write handler for all publishers.
func (m *Manager) SetWriteHandler(handler WriteHandler) {
	m.mu.Lock()
	m.writeHandler = handler
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.Unlock()

	for _, pub := range pubs {
		pub.SetWriteHandler(handler)
	}
}

// SetBridgeNames sets the bridge names for write subscriptions on all publishers.
func (m *Manager) SetBridgeNames(names []string) {
	m.mu.Lock()
	m.bridgeNames = names
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	m.mu.Unlock()

	for _, pub := range pubs {
		pub.SetBridgeNames(names)
	}
}

// UpdateWriteSubscriptions refreshes write subscriptions on all running
// publishers. Call this when bridges are added or removed.
func (m *Manager) UpdateWriteSubscriptions() {
	m.mu.RLock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, pub := range m.publishers {
		pubs = append(pubs, pub)
	}
	bridgeNames := m.bridgeNames
	m.mu.RUnlock()

	for _, pub := range pubs {
		pub.SetBridgeNames(bridgeNames)
		if pub.IsRunning() {
			pub.subscribeWriteTopics()
		}
	}
}
