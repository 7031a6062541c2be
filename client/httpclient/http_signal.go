package httpclient

import (
	"sync"
)

// SessionSignal tells subscribers the session has ended and the user must
// authenticate again. It fires at most once until re-armed by a new credential.
type SessionSignal struct {
	mu        sync.Mutex
	armed     bool
	fired     int
	listeners []chan struct{}
}

func NewSessionSignal() *SessionSignal {
	return &SessionSignal{armed: true}
}

// Subscribe returns a channel receiving one value per emission and a func
// that stops delivery and closes the channel.
func (s *SessionSignal) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.listeners = append(s.listeners, ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			out := s.listeners[:0]
			for _, c := range s.listeners {
				if c != ch {
					out = append(out, c)
				}
			}
			s.listeners = out
			close(ch)
		})
	}
	return ch, unsub
}

// Fire emits once if armed and reports whether it did.
func (s *SessionSignal) Fire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return false
	}
	s.armed = false
	s.fired++

	// Sends never block and the lock keeps unsubscribe from closing mid-send.
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true
}

// Arm re-enables the signal after a credential pair was stored.
func (s *SessionSignal) Arm() {
	s.mu.Lock()
	s.armed = true
	s.mu.Unlock()
}

// Fired counts emissions since creation.
func (s *SessionSignal) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}
