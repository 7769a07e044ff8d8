package audio

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Store caches decoded assets by content identity. Concurrent loads of the
// same content share one decode. An asset leaves the cache when its last
// reference is released.
type Store struct {
	decoder *Decoder
	mu      sync.Mutex
	assets  map[string]*Asset
	group   singleflight.Group
}

// NewStore creates an empty buffer store
func NewStore(decoder *Decoder) *Store {
	return &Store{
		decoder: decoder,
		assets:  make(map[string]*Asset),
	}
}

// Load returns the asset for data, decoding it on a cache miss. The
// returned asset carries one reference owned by the caller.
func (s *Store) Load(ctx context.Context, name string, data []byte) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := ContentKey(data)
	if a := s.lookup(key); a != nil {
		return a, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if a := s.peek(key); a != nil {
			return a, nil
		}
		return s.decoder.Decode(name, data)
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.adopt(v.(*Asset)), nil
}

// Put registers an asset derived in memory (trims, recordings) and returns
// it with one reference for the caller.
func (s *Store) Put(a *Asset) *Asset {
	return s.adopt(a)
}

// Len returns the number of cached assets
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets)
}

// Contains reports whether an asset with key is cached
func (s *Store) Contains(key string) bool {
	return s.peek(key) != nil
}

func (s *Store) lookup(key string) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assets[key]; ok {
		return a.Retain()
	}
	return nil
}

func (s *Store) peek(key string) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assets[key]
}

// adopt caches a (or the already cached asset with the same key) and takes
// a reference on it
func (s *Store) adopt(a *Asset) *Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.assets[a.key]; ok {
		return cached.Retain()
	}
	a.setReleaseHook(s.evict)
	s.assets[a.key] = a
	return a.Retain()
}

func (s *Store) evict(a *Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assets[a.key] == a && a.Refs() <= 0 {
		delete(s.assets, a.key)
	}
}
