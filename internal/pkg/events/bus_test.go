package events

import (
	"io"
	"log/slog"
	"testing"
)

func newTestBus() *Bus {
	return NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmitInvokesHandlersInRegistrationOrder(t *testing.T) {
	bus := newTestBus()

	var got []int
	bus.On("basket:changed", func(any) { got = append(got, 1) })
	bus.On("basket:changed", func(any) { got = append(got, 2) })
	bus.On("basket:changed", func(any) { got = append(got, 3) })

	bus.Emit("basket:changed", nil)

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("handlers ran out of order: %v", got)
	}
}

func TestEmitPassesPayload(t *testing.T) {
	bus := newTestBus()

	var got any
	bus.On("order:changed", func(p any) { got = p })

	bus.Emit("order:changed", "payload")

	if got != "payload" {
		t.Fatalf("payload = %v, want %q", got, "payload")
	}
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	bus := newTestBus()
	bus.Emit("nobody:listens", 42) // must not panic
}

func TestOffRemovesOnlyThatHandler(t *testing.T) {
	bus := newTestBus()

	var first, second int
	h1 := func(any) { first++ }
	h2 := func(any) { second++ }
	bus.On("basket:changed", h1)
	bus.On("basket:changed", h2)

	bus.Off("basket:changed", h1)
	bus.Emit("basket:changed", nil)

	if first != 0 {
		t.Errorf("removed handler ran %d times", first)
	}
	if second != 1 {
		t.Errorf("remaining handler ran %d times, want 1", second)
	}
}

func TestPanickingHandlerDoesNotStopEmission(t *testing.T) {
	bus := newTestBus()

	var ran bool
	bus.On("products:loaded", func(any) { panic("boom") })
	bus.On("products:loaded", func(any) { ran = true })

	bus.Emit("products:loaded", nil)

	if !ran {
		t.Fatal("handler after panicking handler did not run")
	}
}

func TestCatchAllReceivesEveryEmission(t *testing.T) {
	bus := newTestBus()

	type emission struct {
		event   string
		payload any
	}
	var seen []emission
	bus.OnAll(func(event string, payload any) {
		seen = append(seen, emission{event, payload})
	})

	bus.Emit("basket:changed", 1)
	bus.Emit("order:completed", 2)

	if len(seen) != 2 {
		t.Fatalf("catch-all saw %d emissions, want 2", len(seen))
	}
	if seen[0].event != "basket:changed" || seen[1].event != "order:completed" {
		t.Fatalf("catch-all order wrong: %v", seen)
	}
}

func TestHandlerRegisteredDuringEmitDoesNotRunInSameEmission(t *testing.T) {
	bus := newTestBus()

	var late int
	bus.On("basket:changed", func(any) {
		bus.On("basket:changed", func(any) { late++ })
	})

	bus.Emit("basket:changed", nil)
	if late != 0 {
		t.Fatalf("late handler ran during the emission that registered it")
	}

	bus.Emit("basket:changed", nil)
	if late != 1 {
		t.Fatalf("late handler ran %d times on second emission, want 1", late)
	}
}
