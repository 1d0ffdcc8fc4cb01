package events

import (
	"testing"
	"time"
)

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventScanStart, "scan-1", "requirements.txt"))

	select {
	case event := <-ch:
		if event.Type != EventScanStart {
			t.Errorf("Type = %s, want %s", event.Type, EventScanStart)
		}
		if event.ScanID != "scan-1" {
			t.Errorf("ScanID = %q, want %q", event.ScanID, "scan-1")
		}
		if event.Data != "requirements.txt" {
			t.Errorf("Data = %v, want %q", event.Data, "requirements.txt")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe(EventVulnConfirmed)
	defer bus.Unsubscribe(ch)

	bus.Publish(NewEvent(EventFileParsed, "s", "filtered"))
	bus.Publish(NewEvent(EventVulnConfirmed, "s", "arrives"))

	select {
	case event := <-ch:
		if event.Data != "arrives" {
			t.Errorf("Data = %v, want %q", event.Data, "arrives")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}

	select {
	case event := <-ch:
		t.Errorf("unexpected event: %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusMultipleSubscribers(t *testing.T) {
	bus := NewMemoryBus(0)
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	defer bus.Unsubscribe(ch1)
	defer bus.Unsubscribe(ch2)

	bus.Publish(NewEvent(EventScanEnd, "s", nil))

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case event := <-ch:
			if event.Type != EventScanEnd {
				t.Errorf("Type = %s, want %s", event.Type, EventScanEnd)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestMemoryBusHistory(t *testing.T) {
	bus := NewMemoryBus(0)

	t1 := time.Now()
	bus.Publish(NewEvent(EventScanStart, "s", "first"))
	time.Sleep(10 * time.Millisecond)
	t2 := time.Now()
	bus.Publish(NewEvent(EventScanEnd, "s", "second"))

	if all := bus.History(t1); len(all) != 2 {
		t.Fatalf("History(t1) returned %d events, want 2", len(all))
	}
	since := bus.History(t2)
	if len(since) != 1 {
		t.Fatalf("History(t2) returned %d events, want 1", len(since))
	}
	if since[0].Data != "second" {
		t.Errorf("Data = %v, want %q", since[0].Data, "second")
	}
}

func TestMemoryBusHistoryLimit(t *testing.T) {
	bus := NewMemoryBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(NewEvent(EventDependencyFound, "s", i))
	}

	history := bus.History(time.Time{})
	if len(history) != 3 {
		t.Fatalf("History returned %d events, want 3", len(history))
	}
	if history[0].Data != 2 {
		t.Errorf("oldest retained = %v, want 2", history[0].Data)
	}
}

func TestMemoryBusScan(t *testing.T) {
	bus := NewMemoryBus(0)
	bus.Publish(NewEvent(EventScanStart, "a", nil))
	bus.Publish(NewEvent(EventScanStart, "b", nil))
	bus.Publish(NewEvent(EventScanEnd, "a", nil).WithSource("requirements.txt"))

	got := bus.Scan("a")
	if len(got) != 2 {
		t.Fatalf("Scan(a) returned %d events, want 2", len(got))
	}
	if got[1].Source != "requirements.txt" {
		t.Errorf("Source = %q, want %q", got[1].Source, "requirements.txt")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewMemoryBus(0)
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}
