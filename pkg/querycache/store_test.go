package querycache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInvalidatesOnlyTaggedEntries(t *testing.T) {
	s := New(16, time.Minute)

	s.Set(ListKey("roles", "page=1"), []byte(`[1]`))
	s.Set(ListKey("roles", "page=2"), []byte(`[2]`))
	s.Set(DetailKey("roles", "r1"), []byte(`{"id":"r1"}`))
	s.Set(DetailKey("roles", "r2"), []byte(`{"id":"r2"}`))
	s.Set(ListKey("users", ""), []byte(`[]`))

	removed := s.Invalidate(Tag("roles", "r1"), ListTag("roles"))
	assert.Equal(t, 3, removed)

	_, ok := s.Get(ListKey("roles", "page=1"))
	assert.False(t, ok)
	_, ok = s.Get(DetailKey("roles", "r1"))
	assert.False(t, ok)

	got, ok := s.Get(DetailKey("roles", "r2"))
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"r2"}`, string(got))
	_, ok = s.Get(ListKey("users", ""))
	assert.True(t, ok)
}

func TestStoreExtraTags(t *testing.T) {
	s := New(16, time.Minute)
	s.Set(DetailKey("users", "u1"), []byte(`{}`), Tag("roles", "r1"))

	assert.Equal(t, 1, s.Invalidate(Tag("roles", "r1")))
	assert.Equal(t, 0, s.Len())
}

func TestStoreResourceTag(t *testing.T) {
	s := New(16, time.Minute)
	s.Set(DetailKey("roles", "r1"), []byte(`{}`))
	s.Set(ListKey("roles", ""), []byte(`[]`))
	s.Set(ListKey("users", ""), []byte(`[]`))

	assert.Equal(t, 2, s.Invalidate(ResourceTag("roles")))
	assert.Equal(t, 1, s.Len())
}

func TestStoreSetIfCurrentDropsStaleResponses(t *testing.T) {
	s := New(16, time.Minute)
	key := ListKey("permissions", "search=users")

	version := s.Version()
	s.Invalidate(ListTag("permissions"))

	assert.False(t, s.SetIfCurrent(version, key, []byte(`["old"]`)))
	_, ok := s.Get(key)
	assert.False(t, ok)

	assert.True(t, s.SetIfCurrent(s.Version(), key, []byte(`["new"]`)))
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, `["new"]`, string(got))
}

func TestStoreEvictionCleansTagTable(t *testing.T) {
	s := New(2, time.Minute)
	s.Set(DetailKey("users", "u1"), []byte(`1`))
	s.Set(DetailKey("users", "u2"), []byte(`2`))
	s.Set(DetailKey("users", "u3"), []byte(`3`))

	assert.Equal(t, 2, s.Len())
	s.mu.Lock()
	_, tracked := s.tagsOf[DetailKey("users", "u1").String()]
	s.mu.Unlock()
	assert.False(t, tracked)
	assert.Equal(t, 0, s.Invalidate(Tag("users", "u1")))
}

func TestStoreExpiry(t *testing.T) {
	s := New(4, 20*time.Millisecond)
	s.Set(DetailKey("cities", "nyc"), []byte(`{}`))
	require.Eventually(t, func() bool {
		_, ok := s.Get(DetailKey("cities", "nyc"))
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStoreConcurrentAccess(t *testing.T) {
	s := New(64, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set(ListKey("users", string(rune('a'+i))), []byte(`[]`))
				s.Invalidate(ListTag("users"))
				s.Get(ListKey("users", "a"))
			}
		}(i)
	}
	wg.Wait()
	s.Purge()
	assert.Equal(t, 0, s.Len())
}
