package core

import "testing"

func TestEventBusStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := "first", "second"
	bus.Register(EVENT_CODE_RESIZED, first, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		calls = append(calls, first)
		return data.Data.U32[0] == 0
	})
	bus.Register(EVENT_CODE_RESIZED, second, func(code SystemEventCode, sender interface{}, data EventContext) bool {
		calls = append(calls, second)
		return true
	})

	ctx := EventContext{}
	ctx.Data.U32[0] = 800
	if !bus.Fire(EVENT_CODE_RESIZED, nil, ctx) {
		t.Fatal("expected the event to be handled")
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %v, want both listeners", calls)
	}

	calls = nil
	if !bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{}) {
		t.Fatal("expected the event to be handled")
	}
	if len(calls) != 1 || calls[0] != first {
		t.Fatalf("calls = %v, want only the first listener", calls)
	}
}

func TestEventBusRegistration(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	noop := func(SystemEventCode, interface{}, EventContext) bool { return true }

	if !bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, noop) {
		t.Fatal("first registration should succeed")
	}
	if bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, noop) {
		t.Fatal("duplicate registration should be rejected")
	}
	if !bus.Unregister(EVENT_CODE_APPLICATION_QUIT, listener) {
		t.Fatal("unregister should find the listener")
	}
	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Fatal("no listener should remain")
	}
}
