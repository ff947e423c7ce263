package eventbus

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEmitIsolatesPanickingHandler(t *testing.T) {
	bus := New(nil)

	var called int32
	done := make(chan struct{})

	bus.On("evt", func(payload interface{}) {
		panic("boom")
	})
	bus.On("evt", func(payload interface{}) {
		atomic.AddInt32(&called, 1)
		close(done)
	})

	bus.Emit("evt", "payload")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("second handler was not invoked")
	}
	if n := atomic.LoadInt32(&called); n != 1 {
		t.Fatalf("expected exactly one invocation, got %d", n)
	}
}

func TestEmitDoesNotBlockCaller(t *testing.T) {
	bus := New(nil)

	release := make(chan struct{})
	bus.On("slow", func(payload interface{}) {
		<-release
	})

	start := time.Now()
	bus.Emit("slow", nil)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Emit blocked for %v", elapsed)
	}
	close(release)
}

func TestOffRemovesHandler(t *testing.T) {
	bus := New(nil)

	off := bus.On("evt", func(payload interface{}) {})
	bus.On("evt", func(payload interface{}) {})

	if n := bus.ListenerCount("evt"); n != 2 {
		t.Fatalf("expected 2 listeners, got %d", n)
	}
	off()
	if n := bus.ListenerCount("evt"); n != 1 {
		t.Fatalf("expected 1 listener after off, got %d", n)
	}
	// 重复注销是空操作
	off()
	if n := bus.ListenerCount("evt"); n != 1 {
		t.Fatalf("expected 1 listener after duplicate off, got %d", n)
	}
}

func TestEmitWithoutHandlers(t *testing.T) {
	bus := New(nil)
	// 无订阅时 Emit 不应出错
	bus.Emit("nobody", 42)
}

func TestHandlerReceivesPayload(t *testing.T) {
	bus := New(nil)

	got := make(chan interface{}, 1)
	bus.On("evt", func(payload interface{}) {
		got <- payload
	})
	bus.Emit("evt", "hello")

	select {
	case v := <-got:
		if v != "hello" {
			t.Fatalf("payload mismatch: %v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler not invoked")
	}
}
