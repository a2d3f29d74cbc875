package monday

import "sync"

// TokenStore holds the board API credential behind a mutex so the process
// owns exactly one injectable copy instead of ambient global state. Set
// exists for an external OAuth component to rotate the token at runtime.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore(initial string) *TokenStore {
	return &TokenStore{token: initial}
}

func (t *TokenStore) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *TokenStore) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}
