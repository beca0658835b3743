package notify

import (
	"testing"

	"github.com/jbprestor/Finance-Tracker-App/internal/core"
)

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub()

	var got []int64
	unsub := hub.Subscribe("u1", func(u core.UserAccount) {
		got = append(got, u.TotalBalance.Cents)
	})
	other := 0
	hub.Subscribe("u2", func(core.UserAccount) { other++ })

	hub.Publish(core.UserAccount{ID: "u1", TotalBalance: core.Money{Cents: 100}})
	hub.Publish(core.UserAccount{ID: "u1", TotalBalance: core.Money{Cents: 70}})

	if len(got) != 2 || got[0] != 100 || got[1] != 70 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
	if other != 0 {
		t.Fatalf("cross-user delivery: %d", other)
	}

	unsub()
	hub.Publish(core.UserAccount{ID: "u1", TotalBalance: core.Money{Cents: 50}})
	if len(got) != 2 {
		t.Fatalf("delivery after unsubscribe")
	}
	if hub.subscriberCount("u1") != 0 {
		t.Fatalf("subscriber count should be zero after unsubscribe")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()
	unsub := hub.Subscribe("u1", func(core.UserAccount) {})
	unsub()
	unsub()
	if hub.subscriberCount("u1") != 0 {
		t.Fatalf("expected no subscribers")
	}
}
