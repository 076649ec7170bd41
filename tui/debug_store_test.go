package tui

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(maxLines int) *DebugLogStore {
	return &DebugLogStore{
		messages:  make([]LogMessage, 0),
		maxLines:  maxLines,
		listeners: make(map[DebugStoreListenerID]func(LogMessage)),
	}
}

func TestDebugLogStoreLogAndGetMessages(t *testing.T) {
	s := newTestStore(10)
	s.Log("ERROR", "boom %d", 1)
	s.Log("SSH", "session opened")

	msgs := s.GetMessages()
	if len(msgs) != 2 {
		t.Fatalf("GetMessages() len = %d, want 2", len(msgs))
	}
	if msgs[0].Level != "ERROR" || msgs[0].Message != "boom 1" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Level != "SSH" || msgs[1].Message != "session opened" {
		t.Errorf("second message = %+v", msgs[1])
	}
}

func TestDebugLogStoreTruncatesAtMaxLines(t *testing.T) {
	s := newTestStore(3)
	for i := 0; i < 5; i++ {
		s.Log("", "line %d", i)
	}
	msgs := s.GetMessages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Message != "line 2" || msgs[2].Message != "line 4" {
		t.Errorf("expected the three most recent lines, got %+v", msgs)
	}
}

func TestDebugLogStoreGetMessagesReturnsCopy(t *testing.T) {
	s := newTestStore(10)
	s.Log("", "original")

	msgs := s.GetMessages()
	msgs[0].Message = "mutated"

	again := s.GetMessages()
	if again[0].Message != "original" {
		t.Error("GetMessages should return an independent copy")
	}
}

func TestDebugLogStoreClear(t *testing.T) {
	s := newTestStore(10)
	s.Log("", "one")
	s.Clear()
	if len(s.GetMessages()) != 0 {
		t.Error("expected empty store after Clear")
	}
}

func TestDebugLogStoreSubscribeUnsubscribe(t *testing.T) {
	s := newTestStore(10)

	var mu sync.Mutex
	var received []LogMessage
	var wg sync.WaitGroup
	wg.Add(1)

	id := s.Subscribe(func(m LogMessage) {
		mu.Lock()
		received = append(received, m)
		mu.Unlock()
		wg.Done()
	})

	s.Log("", "hello")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber callback was not invoked")
	}

	mu.Lock()
	n := len(received)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("received %d messages, want 1", n)
	}

	s.Unsubscribe(id)
	s.Log("", "after unsubscribe")
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Error("listener should not fire after Unsubscribe")
	}
}
