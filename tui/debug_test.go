package tui

import (
	"strings"
	"testing"
	"time"

	"bridgectl/registry"
)

func TestFormatLevelTagsKnownLevels(t *testing.T) {
	cases := map[string]string{
		"ERROR":      "ERROR:",
		"SSH":        "SSH:",
		"DISCOVERY":  "DISCOVERY:",
		"PARAMSPACE": "PARAMSPACE:",
		"REGISTRY":   "REGISTRY:",
		"CGI":        "CGI:",
	}
	for level, want := range cases {
		got := formatLevel(level, "hello")
		if !strings.Contains(got, want) || !strings.Contains(got, "hello") {
			t.Errorf("formatLevel(%q, ...) = %q, want to contain %q and message", level, got, want)
		}
	}
}

func TestFormatLevelUnknownLevelPassesThrough(t *testing.T) {
	got := formatLevel("", "plain message")
	if got != "plain message" {
		t.Errorf("formatLevel(\"\", ...) = %q, want unchanged message", got)
	}
}

func TestDebugTabReceivesStoreMessages(t *testing.T) {
	app := NewApp(registry.New(), "")
	defer app.Shutdown()

	globalDebugStore.Log("DISCOVERY", "found bridge at %s", "10.0.0.5")

	deadline := time.Now().Add(2 * time.Second)
	for {
		app.debugTab.mu.Lock()
		n := len(app.debugTab.messages)
		app.debugTab.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("debug tab never received the published message")
		}
		time.Sleep(5 * time.Millisecond)
	}

	app.debugTab.mu.Lock()
	last := app.debugTab.messages[len(app.debugTab.messages)-1]
	app.debugTab.mu.Unlock()
	if !strings.Contains(last, "found bridge at 10.0.0.5") {
		t.Errorf("last message = %q, want to contain the published text", last)
	}
}

func TestDebugTabUnsubscribeStopsDelivery(t *testing.T) {
	app := NewApp(registry.New(), "")
	app.Shutdown()

	app.debugTab.mu.Lock()
	before := len(app.debugTab.messages)
	app.debugTab.mu.Unlock()

	globalDebugStore.Log("", "after shutdown")
	time.Sleep(20 * time.Millisecond)

	app.debugTab.mu.Lock()
	after := len(app.debugTab.messages)
	app.debugTab.mu.Unlock()

	if after != before {
		t.Errorf("unsubscribed tab's message count changed: %d -> %d", before, after)
	}
}
