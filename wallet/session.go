package wallet

import (
	"strings"
	"sync"
)

// Session holds the currently connected wallet address and notifies
// subscribers whenever it changes. An empty address means disconnected.
type Session struct {
	lock    sync.Mutex
	address string

	// pubLock serializes deliveries so subscribers see changes in order
	pubLock sync.Mutex
	subs    []subscriber
	nextId  int
}

type subscriber struct {
	id int
	fn func(address string)
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Address() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.address
}

func (s *Session) Connect(address string) {
	s.set(strings.TrimSpace(address))
}

func (s *Session) Disconnect() {
	s.set("")
}

// Subscribe registers fn for address changes. The current address is not replayed.
func (s *Session) Subscribe(fn func(address string)) (unsubscribe func()) {
	s.pubLock.Lock()
	defer s.pubLock.Unlock()
	id := s.nextId
	s.nextId++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.pubLock.Lock()
		defer s.pubLock.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Session) set(address string) {
	s.pubLock.Lock()
	defer s.pubLock.Unlock()

	s.lock.Lock()
	if s.address == address {
		s.lock.Unlock()
		return
	}
	s.address = address
	s.lock.Unlock()

	for _, sub := range s.subs {
		sub.fn(address)
	}
}
