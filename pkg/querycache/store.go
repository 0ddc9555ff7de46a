// Package querycache is a client-side cache of API responses with tag-based invalidation.
//
// Entries are keyed by (resource, id or LIST, query). Every entry carries the tag of its
// resource collection or of its id, plus any extra tags given on Set. A mutation invalidates
// exactly the entries carrying the tags it declares.
package querycache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// List is the id segment of collection-level keys and tags.
const List = "LIST"

// Key identifies one cached response.
type Key struct {
	Resource string
	ID       string
	Query    string
}

// ListKey is the key of a listing query.
func ListKey(resource, query string) Key {
	return Key{Resource: resource, ID: List, Query: query}
}

// DetailKey is the key of a single resource.
func DetailKey(resource, id string) Key {
	return Key{Resource: resource, ID: id}
}

func (k Key) String() string {
	if k.Query == "" {
		return k.Resource + ":" + k.ID
	}
	return k.Resource + ":" + k.ID + "?" + k.Query
}

// Tag returns the tag every entry under k carries.
func (k Key) Tag() string {
	return Tag(k.Resource, k.ID)
}

// Tag names a resource id, or the collection when id is List.
func Tag(resource, id string) string {
	return resource + ":" + id
}

// ListTag is the collection tag of resource.
func ListTag(resource string) string {
	return Tag(resource, List)
}

// ResourceTag is carried by every entry of resource.
func ResourceTag(resource string) string {
	return resource + ":*"
}

// Store is safe for concurrent use.
type Store struct {
	lru *expirable.LRU[string, []byte]

	mu      sync.Mutex
	byTag   map[string]map[string]struct{}
	tagsOf  map[string][]string
	version atomic.Uint64
}

// New creates a store holding at most size entries, each for at most ttl.
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 256
	}
	s := &Store{
		byTag:  make(map[string]map[string]struct{}),
		tagsOf: make(map[string][]string),
	}
	s.lru = expirable.NewLRU[string, []byte](size, s.onEvict, ttl)
	return s
}

// Get returns the cached payload for key.
func (s *Store) Get(key Key) ([]byte, bool) {
	return s.lru.Get(key.String())
}

// Version changes on every invalidation. Pass it to SetIfCurrent to drop responses
// fetched before a mutation landed.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Set stores value under key, tagged with key.Tag(), ResourceTag(key.Resource) and extra.
func (s *Store) Set(key Key, value []byte, extra ...string) {
	s.set(key, value, extra, false, 0)
}

// SetIfCurrent stores value only if nothing was invalidated since version was read.
func (s *Store) SetIfCurrent(version uint64, key Key, value []byte, extra ...string) bool {
	return s.set(key, value, extra, true, version)
}

func (s *Store) set(key Key, value []byte, extra []string, check bool, version uint64) bool {
	k := key.String()
	if check && s.version.Load() != version {
		return false
	}
	s.lru.Add(k, value)

	tags := append([]string{key.Tag(), ResourceTag(key.Resource)}, extra...)
	s.mu.Lock()
	if check && s.version.Load() != version {
		s.mu.Unlock()
		s.lru.Remove(k)
		return false
	}
	s.untagLocked(k)
	for _, tag := range tags {
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[k] = struct{}{}
	}
	s.tagsOf[k] = tags
	s.mu.Unlock()
	return true
}

// Invalidate removes every entry carrying any of tags and returns how many were removed.
func (s *Store) Invalidate(tags ...string) int {
	s.mu.Lock()
	s.version.Add(1)
	victims := make(map[string]struct{})
	for _, tag := range tags {
		for k := range s.byTag[tag] {
			victims[k] = struct{}{}
		}
	}
	s.mu.Unlock()

	// onEvict takes s.mu, so removal happens outside it.
	removed := 0
	for k := range victims {
		if s.lru.Remove(k) {
			removed++
		}
	}
	return removed
}

// Purge drops everything.
func (s *Store) Purge() {
	s.lru.Purge()
	s.mu.Lock()
	s.version.Add(1)
	s.byTag = make(map[string]map[string]struct{})
	s.tagsOf = make(map[string][]string)
	s.mu.Unlock()
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	return s.lru.Len()
}

func (s *Store) onEvict(key string, _ []byte) {
	s.mu.Lock()
	s.untagLocked(key)
	s.mu.Unlock()
}

func (s *Store) untagLocked(key string) {
	for _, tag := range s.tagsOf[key] {
		if keys, ok := s.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.byTag, tag)
			}
		}
	}
	delete(s.tagsOf, key)
}
