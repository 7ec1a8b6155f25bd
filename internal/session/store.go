package session

import "sync"

// Session is one customer at one table.
type Session struct {
	ID          string
	TableNumber int
	// OrderID is the last order placed from this session, if any.
	OrderID string
	Cart    *Cart
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session with id, creating an empty one on first use.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &Session{ID: id, Cart: NewCart()}
		s.sessions[id] = sess
	}
	return sess
}

// Lookup returns the session with id without creating it.
func (s *Store) Lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Placed records a successful checkout.
func (s *Store) Placed(id string, table int, orderID string) {
	sess := s.Get(id)
	s.mu.Lock()
	sess.TableNumber = table
	sess.OrderID = orderID
	s.mu.Unlock()
}

// Snapshot returns a copy of the session fields without the cart. An unknown
// id yields zero values and is not registered.
func (s *Store) Snapshot(id string) (table int, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return 0, ""
	}
	return sess.TableNumber, sess.OrderID
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
