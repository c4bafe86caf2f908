package event_test

import (
	"sync"
	"testing"

	"github.com/devblok/starlight/event"
)

func TestTriggerOrder(t *testing.T) {
	r := event.NewRegistry()

	var got []int
	for i := 0; i < 3; i++ {
		r.Subscribe("resize", func(_ interface{}, ctx interface{}) {
			got = append(got, ctx.(int))
		}, i)
	}
	r.Subscribe("other", func(interface{}, interface{}) {
		t.Error("callback of another kind was triggered")
	}, nil)

	r.Trigger("resize", nil)

	if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("callbacks ran as %v, want [0 1 2]", got)
	}
}

func TestPayload(t *testing.T) {
	r := event.NewRegistry()
	var payload interface{}
	r.Subscribe("k", func(p interface{}, _ interface{}) { payload = p }, nil)
	r.Trigger("k", 42)
	if payload != 42 {
		t.Errorf("payload = %v, want 42", payload)
	}
}

func TestUnsubscribe(t *testing.T) {
	r := event.NewRegistry()

	calls := 0
	id := r.Subscribe("k", func(interface{}, interface{}) { calls++ }, nil)
	r.Subscribe("k", func(interface{}, interface{}) { calls += 10 }, nil)

	if !r.Unsubscribe(id) {
		t.Fatal("Unsubscribe returned false for a live subscription")
	}
	if r.Unsubscribe(id) {
		t.Error("Unsubscribe returned true twice")
	}

	r.Trigger("k", nil)
	if calls != 10 {
		t.Errorf("calls = %d, want 10", calls)
	}
	if n := r.Len("k"); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
}

func TestSubscribeDuringTrigger(t *testing.T) {
	r := event.NewRegistry()
	r.Subscribe("k", func(interface{}, interface{}) {
		r.Subscribe("k", func(interface{}, interface{}) {}, nil)
	}, nil)

	r.Trigger("k", nil)
	if n := r.Len("k"); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestConcurrentTrigger(t *testing.T) {
	r := event.NewRegistry()

	var mu sync.Mutex
	count := 0
	r.Subscribe("k", func(interface{}, interface{}) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Trigger("k", nil)
			r.Subscribe("j", func(interface{}, interface{}) {}, nil)
		}()
	}
	wg.Wait()

	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
	if n := r.Len("j"); n != 8 {
		t.Errorf("Len(j) = %d, want 8", n)
	}
}
