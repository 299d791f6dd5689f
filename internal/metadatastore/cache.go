// SPDX-License-Identifier: Apache-2.0

package metadatastore

import (
	"container/list"
	"sync"

	"github.com/openlawlibrary/taf/internal/gitinterface"
)

// cacheKey identifies one cached GitReader: the authentication repository's
// working-copy path, the commit it was built at, and nothing else — a
// GitReader itself already serves every role/target at that commit, so the
// cache doesn't need to be keyed per-role.
type cacheKey struct {
	repoPath string
	commitID gitinterface.Hash
}

// ReaderCache is a bounded, in-memory cache of GitReaders keyed by
// (authentication repository path, commit). The Auth-Chain Walker re-derives
// a Reader for every commit it steps through; across repeated verification
// runs over overlapping history, most of those commits repeat, so caching
// avoids re-walking the same tree.
//
// Standard-library justification: no bounded-cache/LRU library appears
// anywhere in the retrieval pack, so eviction here is a small hand-rolled
// least-recently-used list rather than an invented third-party dependency.
type ReaderCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List // front = most recently used
}

type cacheEntry struct {
	key    cacheKey
	reader *GitReader
}

// NewReaderCache returns a ReaderCache that holds at most capacity entries.
// A non-positive capacity disables caching: every Get misses and Put is a
// no-op.
func NewReaderCache(capacity int) *ReaderCache {
	return &ReaderCache{
		capacity: capacity,
		entries:  map[cacheKey]*list.Element{},
		order:    list.New(),
	}
}

// Get returns the cached GitReader for (repoPath, commitID), if present.
func (c *ReaderCache) Get(repoPath string, commitID gitinterface.Hash) (*GitReader, bool) {
	if c.capacity <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{repoPath: repoPath, commitID: commitID}
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).reader, true
}

// Put stores reader under (repoPath, commitID), evicting the least recently
// used entry if the cache is at capacity.
func (c *ReaderCache) Put(repoPath string, commitID gitinterface.Hash, reader *GitReader) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{repoPath: repoPath, commitID: commitID}
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).reader = reader
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry{key: key, reader: reader})
	c.entries[key] = elem

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len reports how many entries are currently cached.
func (c *ReaderCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
