package session

import "sync"

// Store keeps live sessions in memory, one per user. Sessions are
// volatile: a restart drops every open walk, which is acceptable because
// nothing is persisted before confirmation. Starting a new order simply
// overwrites whatever unconfirmed session the user had.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*OrderSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*OrderSession)}
}

// Begin replaces any existing session for the user with a fresh one.
func (st *Store) Begin(s *OrderSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.UserID] = s
}

func (st *Store) Get(userID int64) (*OrderSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// End discards the user's session. Ending an absent session is a no-op,
// which makes duplicate confirm signals after a commit harmless.
func (st *Store) End(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}
