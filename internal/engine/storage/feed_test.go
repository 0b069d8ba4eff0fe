package storage

import (
	"testing"

	"github.com/arvelo/siteplot/internal/model"
)

func TestFeedScopesByOrg(t *testing.T) {
	f := NewFeed()
	acme := f.Subscribe("acme")
	other := f.Subscribe("other")
	defer f.Unsubscribe("other", other)

	f.Publish(model.ChangeEvent{Type: model.EventInsert, Org: "acme", ID: "p-1"})

	select {
	case e := <-acme:
		if e.ID != "p-1" {
			t.Fatalf("wrong event: %+v", e)
		}
	default:
		t.Fatal("subscriber for the event's org received nothing")
	}

	select {
	case e := <-other:
		t.Fatalf("other org leaked event: %+v", e)
	default:
	}

	f.Unsubscribe("acme", acme)
	if _, open := <-acme; open {
		t.Error("unsubscribe must close the channel")
	}
}

func TestFeedFansOut(t *testing.T) {
	f := NewFeed()
	a := f.Subscribe("acme")
	b := f.Subscribe("acme")
	defer f.Unsubscribe("acme", a)
	defer f.Unsubscribe("acme", b)

	f.Publish(model.ChangeEvent{Type: model.EventDelete, Org: "acme", ID: "p-2"})

	for _, ch := range []chan model.ChangeEvent{a, b} {
		select {
		case e := <-ch:
			if e.ID != "p-2" {
				t.Fatalf("wrong event: %+v", e)
			}
		default:
			t.Fatal("fan-out missed a subscriber")
		}
	}
}

func TestFeedDropsWhenSubscriberFull(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe("acme")
	defer f.Unsubscribe("acme", ch)

	// One more event than the buffer holds; Publish must not block.
	for i := 0; i <= cap(ch); i++ {
		f.Publish(model.ChangeEvent{Type: model.EventInsert, Org: "acme", ID: "x"})
	}
	if got := len(ch); got != cap(ch) {
		t.Errorf("buffered %d events, want %d", got, cap(ch))
	}
}

func TestFeedUnsubscribeTwice(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe("acme")
	f.Unsubscribe("acme", ch)
	// Second call must not close an already-closed channel.
	f.Unsubscribe("acme", ch)
}
