package timeseries

import (
	"testing"
	"time"
)

func TestBroadcasterDeliversToSubscribedTargetOnly(t *testing.T) {
	b := newBroadcaster()

	chA, unsubA := b.Subscribe(1)
	defer unsubA()
	chB, unsubB := b.Subscribe(2)
	defer unsubB()

	sample := PingSample{Time: time.Now(), TargetID: 1, PacketLoss: true}
	b.publish(sample)

	select {
	case got := <-chA:
		if got.TargetID != 1 {
			t.Fatalf("target 1 subscriber got sample for target %d", got.TargetID)
		}
	case <-time.After(time.Second):
		t.Fatal("target 1 subscriber never received the sample")
	}

	select {
	case got := <-chB:
		t.Fatalf("target 2 subscriber unexpectedly received a sample: %+v", got)
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := newBroadcaster()
	ch, unsub := b.Subscribe(5)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestBroadcasterDropsWhenSubscriberBufferIsFull(t *testing.T) {
	b := newBroadcaster()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	for i := 0; i < 100; i++ {
		b.publish(PingSample{TargetID: 1})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count == 0 {
				t.Fatal("expected at least some buffered samples to be delivered")
			}
			return
		}
	}
}
