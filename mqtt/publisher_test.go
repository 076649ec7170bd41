package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"bridgectl/config"
)

func TestPublisher_NewPublisher(t *testing.T) {
	cfg := &config.MQTTConfig{
		Name:    "test",
		Broker:  "localhost",
		Port:    1883,
		Enabled: true,
	}
	pub := NewPublisher(cfg)

	if pub.Name() != "test" {
		t.Errorf("expected name 'test', got %s", pub.Name())
	}
	if pub.IsRunning() {
		t.Error("expected new publisher to not be running")
	}
}

func TestPublisher_Address(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.MQTTConfig
		expect string
	}{
		{"plain tcp", config.MQTTConfig{Broker: "broker.local", Port: 1883}, "tcp://broker.local:1883"},
		{"tls", config.MQTTConfig{Broker: "broker.local", Port: 8883, UseTLS: true}, "ssl://broker.local:8883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewPublisher(&tt.cfg)
			if got := pub.Address(); got != tt.expect {
				t.Errorf("Address() = %s, want %s", got, tt.expect)
			}
		})
	}
}

func TestPublisher_BuildTopic(t *testing.T) {
	pub := NewPublisher(&config.MQTTConfig{Name: "fleet"})

	if got := pub.BuildTopic("unit-12", ""); got != "fleet/unit-12" {
		t.Errorf("discovery topic = %s, want fleet/unit-12", got)
	}
	if got := pub.BuildTopic("unit-12", "gain"); got != "fleet/unit-12/params/gain" {
		t.Errorf("param topic = %s, want fleet/unit-12/params/gain", got)
	}
}

func TestPublisher_EventMessagePayload(t *testing.T) {
	msg := EventMessage{
		Topic:     "fleet",
		Bridge:    "unit-12",
		Param:     "gain",
		Value:     42,
		Kind:      "param",
		Timestamp: "2026-01-01T00:00:00Z",
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, field := range []string{"topic", "bridge", "param", "value", "kind", "timestamp"} {
		if _, ok := decoded[field]; !ok {
			t.Errorf("expected field %q in payload", field)
		}
	}
}

func TestPublisher_EventMessageOmitsEmptyParam(t *testing.T) {
	msg := EventMessage{Topic: "fleet", Bridge: "unit-12", Kind: "discovered", Value: "online"}

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(payload) == "" {
		t.Fatal("expected non-empty payload")
	}

	var decoded map[string]interface{}
	json.Unmarshal(payload, &decoded)
	if _, ok := decoded["param"]; ok {
		t.Error("expected param field to be omitted when empty")
	}
}

func TestPublisher_LastValueCaching(t *testing.T) {
	pub := NewPublisher(&config.MQTTConfig{Name: "fleet"})

	// publish() bails out before touching lastValues when not running,
	// so directly exercise the cache-key bookkeeping it would otherwise do.
	pub.lastMu.Lock()
	pub.lastValues["param/unit-12/gain"] = 10
	pub.lastMu.Unlock()

	pub.lastMu.RLock()
	last, exists := pub.lastValues["param/unit-12/gain"]
	pub.lastMu.RUnlock()

	if !exists || last != 10 {
		t.Errorf("expected cached value 10, got %v (exists=%v)", last, exists)
	}
}

func TestConcurrentPublisherAccess(t *testing.T) {
	pub := NewPublisher(&config.MQTTConfig{Name: "fleet"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("param/unit-%d/gain", n)
			pub.lastMu.Lock()
			pub.lastValues[key] = n
			pub.lastMu.Unlock()
		}(i)
	}
	wg.Wait()

	pub.lastMu.RLock()
	defer pub.lastMu.RUnlock()
	if len(pub.lastValues) != 20 {
		t.Errorf("expected 20 cached values, got %d", len(pub.lastValues))
	}
}

func TestManager_AddGetRemove(t *testing.T) {
	mgr := NewManager()
	pub := NewPublisher(&config.MQTTConfig{Name: "fleet-a"})
	mgr.Add(pub)

	if got := mgr.Get("fleet-a"); got != pub {
		t.Error("expected Get to return the added publisher")
	}
	if len(mgr.List()) != 1 {
		t.Errorf("expected 1 publisher, got %d", len(mgr.List()))
	}

	mgr.Remove("fleet-a")
	if mgr.Get("fleet-a") != nil {
		t.Error("expected publisher to be removed")
	}
}

func TestManager_LoadFromConfig(t *testing.T) {
	mgr := NewManager()
	cfgs := []config.MQTTConfig{
		{Name: "a", Broker: "host-a", Port: 1883},
		{Name: "b", Broker: "host-b", Port: 1883},
	}
	mgr.LoadFromConfig(cfgs)

	if len(mgr.List()) != 2 {
		t.Errorf("expected 2 publishers, got %d", len(mgr.List()))
	}
}

func TestManager_SetWriteHandlerPropagates(t *testing.T) {
	mgr := NewManager()
	pub := NewPublisher(&config.MQTTConfig{Name: "fleet"})
	mgr.Add(pub)

	called := false
	mgr.SetWriteHandler(func(bridge, param string, value interface{}) error {
		called = true
		return nil
	})

	pub.mu.RLock()
	handler := pub.writeHandler
	pub.mu.RUnlock()

	if handler == nil {
		t.Fatal("expected write handler to propagate to publisher")
	}
	handler("unit-12", "gain", 5)
	if !called {
		t.Error("expected propagated handler to be invoked")
	}
}

func TestManager_AnyRunning_FalseWhenEmpty(t *testing.T) {
	mgr := NewManager()
	if mgr.AnyRunning() {
		t.Error("expected AnyRunning to be false with no publishers")
	}
}
