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

// Package engine implements the Sevino storage core: the path resolver,
// content digest, metadata store, in-memory index, dedup coordinator
// and the object/bucket engines built on top of them. The HTTP
// transport in internal/httpapi is a thin adapter over the public
// methods of Engine.
package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config configures a new Engine. Engine is a value constructed from
// this record; there are no process-wide statics.
type Config struct {
	// DataRoot is the filesystem root under which every bucket
	// directory, metadata file and content file lives.
	DataRoot string
	// MaxPayloadSize rejects puts whose body exceeds this many bytes
	// with PayloadTooLarge. Zero means unlimited.
	MaxPayloadSize int64
}

// bucketState is the per-bucket runtime state guarded, at the registry
// level, by Engine.registryMu (lock tier 1). opMu is a per-bucket
// operation lock, acquired after the registry lock and before the
// bucket index's own mutex (bucketIndex.mu), and held across the
// entire dedup sequence
// (candidate lookup -> holder election -> refcount update -> metadata
// commit -> index update) for every mutating operation. This is the
// coarse-but-correct option: holding the per-bucket lock across the
// whole sequence trades fan-out within a bucket for a trivially
// provable absence of lost updates.
type bucketState struct {
	name      string
	id        string
	createdAt time.Time
	index     *bucketIndex

	opMu       sync.Mutex
	versionSeq map[string]int64 // key -> highest version number issued
}

// nextVersionID returns the next monotonic version tag for key. Callers
// must hold bs.opMu.
func (bs *bucketState) nextVersionID(key string) string {
	if bs.versionSeq == nil {
		bs.versionSeq = make(map[string]int64)
	}
	bs.versionSeq[key]++
	return strconv.FormatInt(bs.versionSeq[key], 10)
}

// Engine is the object engine plus the bucket engine: the only
// components external callers reach.
type Engine struct {
	cfg   Config
	paths *pathResolver
	meta  *metadataStore
	dedup *dedupCoordinator
	clock func() time.Time

	registryMu sync.RWMutex
	buckets    map[string]*bucketState
}

// New constructs an Engine against cfg.DataRoot without touching disk.
// Call Load to perform the startup rebuild.
func New(cfg Config) *Engine {
	paths := newPathResolver(cfg.DataRoot)
	return &Engine{
		cfg:     cfg,
		paths:   paths,
		meta:    newMetadataStore(paths),
		dedup:   newDedupCoordinator(),
		clock:   time.Now,
		buckets: make(map[string]*bucketState),
	}
}

// Load scans DataRoot and rebuilds the in-memory index from the
// on-disk metadata tree, recovering from any crash between metadata
// commit and index update.
func (e *Engine) Load(ctx context.Context) error {
	names, err := e.meta.listBucketNames(e.cfg.DataRoot)
	if err != nil {
		return err
	}
	for _, name := range names {
		info, err := e.meta.loadBucket(name)
		if err != nil {
			return err
		}
		bs := &bucketState{
			name: info.Name, id: info.ID, createdAt: info.CreatedAt,
			index:      newBucketIndex(),
			versionSeq: make(map[string]int64),
		}

		records, err := e.meta.scanBucketObjects(name)
		if err != nil {
			return err
		}
		for _, m := range records {
			bs.index.records[m.ID] = m
			if m.IsLatest {
				bs.index.current[m.Key] = m.ID
				bs.index.objectCount++
				bs.index.totalSize += m.Size
			}
			bs.index.byETag[m.ContentETag] = append(bs.index.byETag[m.ContentETag], m.ID)
			if v, err := strconv.ParseInt(m.VersionID, 10, 64); err == nil && v > bs.versionSeq[m.Key] {
				bs.versionSeq[m.Key] = v
			}
		}

		// A holder's reference_count must equal the exact count of
		// objects pointing at it. Rather than trust the last persisted
		// value, which can go momentarily stale across a crash between
		// a reference's commit and its holder's refcount commit,
		// recompute it here from the actual graph of references
		// observed on disk. This makes refcount self-healing on every
		// restart instead of order-dependent.
		actual := make(map[string]int64)
		for _, m := range records {
			if m.Role() == RoleReference {
				actual[m.DataHolderID]++
			}
		}
		for id, count := range actual {
			if h, ok := bs.index.records[id]; ok {
				h.ReferenceCount = count
			}
		}
		for _, m := range records {
			if m.Role() == RoleHolder && actual[m.ID] == 0 {
				m.ReferenceCount = 0
			}
		}

		e.buckets[name] = bs
	}
	return nil
}

func (e *Engine) newID() string { return uuid.NewString() }

func (e *Engine) now() time.Time { return e.clock().UTC() }

// getBucket returns the registered bucket state, under the registry
// read lock.
func (e *Engine) getBucket(name string) (*bucketState, error) {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()
	bs, ok := e.buckets[name]
	if !ok {
		return nil, newErr(KindBucketNotFound, "bucket %q not found", name)
	}
	return bs, nil
}
