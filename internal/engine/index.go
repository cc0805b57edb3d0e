// Copyright (c) 2015-2021 MinIO, Inc.
//
// This file is part of MinIO Object Storage stack
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package engine

import (
	"sort"
	"strings"
	"sync"
)

// bucketIndex is the in-memory index for one bucket, the second tier
// of the lock hierarchy: current holds the live key→id pointer, byETag
// holds ordered dedup candidate lists, records holds the full
// in-memory cache of every live object plus every superseded version
// that has not been deleted. The mutex also guards
// objectCount/totalSize.
type bucketIndex struct {
	mu sync.RWMutex

	current map[string]string            // key -> object id (live version only)
	byETag  map[string][]string          // content etag -> ordered ids (insertion order)
	records map[string]*ObjectMetadata   // object id -> record (live + superseded versions)
	locks   map[string]*sync.Mutex       // object id -> per-object metadata lock (tier 3)

	objectCount int64
	totalSize   int64
}

func newBucketIndex() *bucketIndex {
	return &bucketIndex{
		current: make(map[string]string),
		byETag:  make(map[string][]string),
		records: make(map[string]*ObjectMetadata),
		locks:   make(map[string]*sync.Mutex),
	}
}

// objectLock returns (creating if necessary) the per-object metadata
// lock for id. Must be called with bi.mu held, per the lock hierarchy.
func (bi *bucketIndex) objectLock(id string) *sync.Mutex {
	l, ok := bi.locks[id]
	if !ok {
		l = &sync.Mutex{}
		bi.locks[id] = l
	}
	return l
}

// install registers a brand-new live object. Atomic: updates current,
// byETag, records and the size/count accounting under one lock hold.
func (bi *bucketIndex) install(m *ObjectMetadata) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.current[m.Key] = m.ID
	bi.byETag[m.ContentETag] = append(bi.byETag[m.ContentETag], m.ID)
	bi.records[m.ID] = m
	bi.objectCount++
	bi.totalSize += m.Size
}

// replace advances the live pointer for key from oldID to a newly
// created newM, keeping the old record addressable (callers retain its
// metadata file on disk for version listing) but no longer "current".
func (bi *bucketIndex) replace(key, oldID string, newM *ObjectMetadata) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	if old, ok := bi.records[oldID]; ok {
		superseded := old.clone()
		superseded.IsLatest = false
		bi.records[oldID] = superseded
		bi.totalSize -= old.Size
		bi.objectCount--
		// oldID keeps its own records entry (as a historical, non-live
		// version or as a still-referenced holder); it is simply no
		// longer reachable via `current`.
	}
	bi.current[key] = newM.ID
	bi.byETag[newM.ContentETag] = append(bi.byETag[newM.ContentETag], newM.ID)
	bi.records[newM.ID] = newM
	bi.objectCount++
	bi.totalSize += newM.Size
}

// remove drops a live object's key pointer and record entirely (used
// for delete of the live version, not for version supersession).
func (bi *bucketIndex) remove(key, id, etag string) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	if cur, ok := bi.current[key]; ok && cur == id {
		delete(bi.current, key)
	}
	if m, ok := bi.records[id]; ok {
		bi.objectCount--
		bi.totalSize -= m.Size
		delete(bi.records, id)
	}
	bi.unlinkEtag(etag, id)
	delete(bi.locks, id)
}

// unlinkEtag drops id from the etag candidate list. Must be called
// with bi.mu held.
func (bi *bucketIndex) unlinkEtag(etag, id string) {
	ids := bi.byETag[etag]
	for i, existing := range ids {
		if existing == id {
			bi.byETag[etag] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(bi.byETag[etag]) == 0 {
		delete(bi.byETag, etag)
	}
}

// lookup returns the live object id for key, if any.
func (bi *bucketIndex) lookup(key string) (string, bool) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	id, ok := bi.current[key]
	return id, ok
}

// record returns the in-memory record for an id, if cached.
func (bi *bucketIndex) record(id string) (*ObjectMetadata, bool) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	m, ok := bi.records[id]
	return m, ok
}

// swapRecord atomically replaces the cached record for id with newM.
// Callers must never hand out a record pointer they go on to mutate in
// place; the update-refcount-on-a-holder path instead clones the
// existing record, mutates the clone, persists it, and swaps the
// pointer in here so a concurrent reader calling record()/clone()
// never observes a half-written struct. replace follows the same rule
// when it marks a superseded record as no longer latest.
func (bi *bucketIndex) swapRecord(id string, newM *ObjectMetadata) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.records[id] = newM
}

// candidates returns the ordered list of object ids sharing a
// content-computed etag, used for dedup selection.
func (bi *bucketIndex) candidates(etag string) []string {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	out := make([]string, len(bi.byETag[etag]))
	copy(out, bi.byETag[etag])
	return out
}

// snapshot returns a stable copy of every live key, sorted
// lexicographically, for pagination.
func (bi *bucketIndex) snapshot() []string {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	keys := make([]string, 0, len(bi.current))
	for k := range bi.current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (bi *bucketIndex) counts() (count, size int64) {
	bi.mu.RLock()
	defer bi.mu.RUnlock()
	return bi.objectCount, bi.totalSize
}

// list paginates lexicographically over live keys with prefix match and
// optional delimiter-based grouping.
func (bi *bucketIndex) list(opts ListOptions) ListResult {
	if opts.MaxKeys <= 0 {
		opts.MaxKeys = 1000
	}
	keys := bi.snapshot()

	start := 0
	if opts.Marker != "" {
		start = sort.SearchStrings(keys, opts.Marker)
		if start < len(keys) && keys[start] == opts.Marker {
			start++
		}
	}

	var result ListResult
	seenPrefix := make(map[string]bool)
	for i := start; i < len(keys); i++ {
		k := keys[i]
		if opts.Prefix != "" && !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		if len(result.Entries) >= opts.MaxKeys {
			result.IsTruncated = true
			result.NextMarker = keys[i-1]
			return result
		}
		if opts.Delimiter != "" {
			rest := k[len(opts.Prefix):]
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				grouped := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if !seenPrefix[grouped] {
					seenPrefix[grouped] = true
					result.Entries = append(result.Entries, ListEntry{Key: grouped, IsPrefix: true})
				}
				continue
			}
		}
		id, ok := bi.lookup(k)
		if !ok {
			continue
		}
		m, ok := bi.record(id)
		if !ok {
			continue
		}
		if !matchesFilters(m, opts) {
			continue
		}
		result.Entries = append(result.Entries, ListEntry{Key: k, Object: m.clone()})
	}
	return result
}

func matchesFilters(m *ObjectMetadata, opts ListOptions) bool {
	if opts.ETagFilter != "" && !globMatch(opts.ETagFilter, m.ETag) {
		return false
	}
	for k, v := range opts.UserMetadataFilters {
		if m.UserMetadata[k] != v {
			return false
		}
	}
	return true
}

// globMatch supports a simple '*' wildcard glob, anchored at both ends.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(s, last) && len(s) >= len(last)
}
