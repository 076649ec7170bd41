package tui

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"bridgectl/logging"
)

// LogMessage is a single log entry routed through the shared debug store.
type LogMessage struct {
	Timestamp time.Time
	Level     string // "ERROR", "SSH", "DISCOVERY", "PARAMSPACE", "REGISTRY", "CGI", ""
	Message   string
}

// DebugStoreListenerID identifies a registered DebugLogStore subscriber.
type DebugStoreListenerID string

// DebugLogStore fans a stream of LogMessages out to every subscriber. It
// exists because bridgefleetd can have several DebugTabs alive at once --
// the daemon's own local TUI plus one per connected SSH session -- and a
// single "current" tab pointer would only ever show the most recently
// opened session's log. Every DebugTab subscribes instead, so each keeps
// its own scrollback of the same global feed.
type DebugLogStore struct {
	messages    []LogMessage
	mu          sync.RWMutex
	maxLines    int
	listeners   map[DebugStoreListenerID]func(LogMessage)
	listenersMu sync.RWMutex
	counter     uint64
	fileLogger  *logging.FileLogger
}

var globalDebugStore = &DebugLogStore{
	maxLines:  1000,
	listeners: make(map[DebugStoreListenerID]func(LogMessage)),
}

// Log adds a message to the store and notifies all subscribers, in their
// own goroutines so a slow or blocked listener can't stall the caller.
func (s *DebugLogStore) Log(level, format string, args ...interface{}) {
	msg := LogMessage{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	}

	if s.fileLogger != nil {
		s.fileLogger.Log("%s", msg.Message)
	}

	if !s.mu.TryLock() {
		return // drop rather than block a hot subsystem on a contended store
	}
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.maxLines {
		s.messages = s.messages[len(s.messages)-s.maxLines:]
	}
	s.mu.Unlock()

	s.listenersMu.RLock()
	listeners := make([]func(LogMessage), 0, len(s.listeners))
	for _, cb := range s.listeners {
		listeners = append(listeners, cb)
	}
	s.listenersMu.RUnlock()

	for _, cb := range listeners {
		go cb(msg)
	}
}

// Subscribe registers cb to run for every future message and returns an ID
// for a matching Unsubscribe call.
func (s *DebugLogStore) Subscribe(cb func(LogMessage)) DebugStoreListenerID {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := DebugStoreListenerID(fmt.Sprintf("debug-%d", atomic.AddUint64(&s.counter, 1)))
	s.listeners[id] = cb
	return id
}

// Unsubscribe removes a previously registered subscriber.
func (s *DebugLogStore) Unsubscribe(id DebugStoreListenerID) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	delete(s.listeners, id)
}

// GetMessages returns a copy of every message currently buffered.
func (s *DebugLogStore) GetMessages() []LogMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]LogMessage, len(s.messages))
	copy(result, s.messages)
	return result
}

// Clear empties the store's buffer. Existing subscribers are unaffected.
func (s *DebugLogStore) Clear() {
	s.mu.Lock()
	s.messages = make([]LogMessage, 0)
	s.mu.Unlock()
}

// SetFileLogger routes every future message to logger in addition to its
// subscribers.
func (s *DebugLogStore) SetFileLogger(logger *logging.FileLogger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileLogger = logger
}
