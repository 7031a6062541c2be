package httpclient

import "testing"

func Test_SessionSignal_firesOncePerSession(t *testing.T) {
	s := NewSessionSignal()
	ch, unsub := s.Subscribe()
	defer unsub()

	if !s.Fire() {
		t.Fatalf("first Fire did not emit")
	}
	if s.Fire() {
		t.Fatalf("second Fire emitted before re-arm")
	}
	if len(ch) != 1 {
		t.Fatalf("buffered=%d; want 1", len(ch))
	}
	<-ch

	s.Arm()
	if !s.Fire() {
		t.Fatalf("Fire after Arm did not emit")
	}
	if s.Fired() != 2 {
		t.Fatalf("Fired=%d; want 2", s.Fired())
	}
}

func Test_SessionSignal_unsubscribeClosesChannel(t *testing.T) {
	s := NewSessionSignal()
	ch, unsub := s.Subscribe()
	other, unsubOther := s.Subscribe()
	defer unsubOther()

	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatalf("channel still open after unsubscribe")
	}

	s.Fire()
	if len(other) != 1 {
		t.Fatalf("remaining subscriber missed emission")
	}
}
