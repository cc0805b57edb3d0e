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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Put uploads bytes under (bucket, key) and returns the resulting
// metadata record. See the dedup state machine below and writePayload
// for the commit order.
func (e *Engine) Put(bucket, key string, payload []byte, opts PutOptions) (*ObjectMetadata, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := validateUserMetadata(opts.UserMetadata); err != nil {
		return nil, err
	}
	if e.cfg.MaxPayloadSize > 0 && int64(len(payload)) > e.cfg.MaxPayloadSize {
		return nil, newErr(KindPayloadTooLarge, "payload of %d bytes exceeds the configured maximum of %d bytes", len(payload), e.cfg.MaxPayloadSize)
	}

	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil, err
	}

	bs.opMu.Lock()
	defer bs.opMu.Unlock()

	contentETag := digest(payload)

	candidateIDs := bs.index.candidates(contentETag)
	candidates := e.loadRecords(bs, candidateIDs)

	oldID, hadPrevious := bs.index.lookup(key)

	versionID := bs.nextVersionID(key)
	now := e.now()

	m := &ObjectMetadata{
		ID:           fmt.Sprintf("%s/%s#%s", bucket, key, versionID),
		Key:          key,
		BucketName:   bucket,
		Size:         int64(len(payload)),
		ETag:         contentETag,
		ContentETag:  contentETag,
		ContentType:  opts.ContentType,
		CreatedAt:    now,
		LastModified: now,
		UserMetadata: copyMeta(opts.UserMetadata),
		VersionID:    versionID,
		IsLatest:     true,
	}

	switch opts.DedupMode {
	case DedupReject:
		if len(candidates) > 0 {
			return nil, newErr(KindDuplicateContent, "content with etag %s already exists in bucket %q", contentETag, bucket)
		}
		m.DataHolderID = HolderSelf
		if err := e.writePayload(bucket, m.ID, payload); err != nil {
			return nil, err
		}

	case DedupReference:
		holder := e.dedup.chooseHolder(candidates)
		if holder == nil {
			m.DataHolderID = HolderSelf
			if err := e.writePayload(bucket, m.ID, payload); err != nil {
				return nil, err
			}
		} else {
			m.DataHolderID = holder.ID
			m.Size = holder.Size
			// holder is the live pointer cached in bs.index.records; never
			// mutate it in place. Clone, bump the clone's count, persist
			// the clone, then swap the index pointer under bi.mu so a
			// concurrent Get/List/GetMetadata, which fetches the pointer
			// under an RLock and clones it after releasing the lock,
			// never observes a torn read of the struct.
			updatedHolder := holder.clone()
			updatedHolder.ReferenceCount++
			if err := e.meta.saveObject(updatedHolder); err != nil {
				return nil, err
			}
			bs.index.swapRecord(updatedHolder.ID, updatedHolder)
		}

	default: // DedupAllow
		m.DataHolderID = HolderSelf
		if err := e.writePayload(bucket, m.ID, payload); err != nil {
			return nil, err
		}
	}

	if hadPrevious {
		// Capture the superseded version under its own historical
		// filename before the live-pointer file is overwritten below,
		// so ListVersions can still find it once `current` moves on.
		// This must happen before saveObject(m): both live and
		// historical-v1 records share the same on-disk filename stem
		// (the bare key) until this step gives the old one its own
		// "{key}@{version}" name.
		oldM, ok := bs.index.record(oldID)
		if !ok {
			oldM, err = e.meta.loadObject(bucket, key)
			if err != nil {
				return nil, err
			}
		}
		oldCopy := oldM.clone()
		oldCopy.IsLatest = false
		if err := e.meta.saveObject(oldCopy); err != nil {
			return nil, err
		}
	}

	if err := e.meta.saveObject(m); err != nil {
		return nil, err
	}

	if hadPrevious {
		bs.index.replace(key, oldID, m)
	} else {
		bs.index.install(m)
	}

	return m.clone(), nil
}

// PutMetadata edits content_type, user_metadata and/or etag without
// touching holder state or size.
func (e *Engine) PutMetadata(bucket, key string, edit MetadataEdit) (*ObjectMetadata, error) {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil, err
	}

	bs.opMu.Lock()
	defer bs.opMu.Unlock()

	id, ok := bs.index.lookup(key)
	if !ok {
		return nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	m, ok := bs.index.record(id)
	if !ok {
		return nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}

	if edit.UserMetadata != nil {
		if err := validateUserMetadata(edit.UserMetadata); err != nil {
			return nil, err
		}
	}

	oldETag := m.ETag
	newETag := oldETag
	if edit.CustomETag != nil {
		if err := validateCustomETag(*edit.CustomETag); err != nil {
			return nil, err
		}
		newETag = *edit.CustomETag
	}

	updated := m.clone()
	if edit.ContentType != nil {
		updated.ContentType = *edit.ContentType
	}
	if edit.UserMetadata != nil {
		updated.UserMetadata = copyMeta(edit.UserMetadata)
	}
	updated.ETag = newETag
	updated.LastModified = e.now()

	if err := e.meta.saveObject(updated); err != nil {
		return nil, err
	}

	bs.index.swapRecord(id, updated)

	return updated.clone(), nil
}

// MultipartPut stores one part of a client-driven multipart upload as
// its own independently addressable object. No server-side
// assembly is performed.
func (e *Engine) MultipartPut(bucket, key string, payload []byte, opts MultipartPutOptions) (*ObjectMetadata, error) {
	if opts.UploadID == "" {
		return nil, newErr(KindInvalidMultipart, "upload_id is required")
	}
	if opts.PartNumber < 1 {
		return nil, newErr(KindInvalidMultipart, "part_number must be >= 1")
	}
	if opts.TotalParts < 1 {
		return nil, newErr(KindInvalidMultipart, "total_parts must be >= 1")
	}
	if opts.PartNumber > opts.TotalParts {
		return nil, newErr(KindInvalidMultipart, "part_number %d exceeds total_parts %d", opts.PartNumber, opts.TotalParts)
	}

	partKey := fmt.Sprintf("%s.part-%s-%05d", key, opts.UploadID, opts.PartNumber)

	return e.Put(bucket, partKey, payload, PutOptions{
		ContentType: opts.ContentType,
		DedupMode:   DedupAllow,
		UserMetadata: map[string]string{
			"multipart_upload_id": opts.UploadID,
			"part_number":         strconv.Itoa(opts.PartNumber),
			"total_parts":         strconv.Itoa(opts.TotalParts),
		},
	})
}

// Get resolves key, follows a reference to its holder transparently,
// and returns the payload bytes plus the requested object's metadata.
func (e *Engine) Get(bucket, key string) ([]byte, *ObjectMetadata, error) {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil, nil, err
	}

	id, ok := bs.index.lookup(key)
	if !ok {
		return nil, nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	m, ok := bs.index.record(id)
	if !ok {
		return nil, nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}

	holderID := id
	if m.Role() == RoleReference {
		holderID = m.DataHolderID
		if _, ok := bs.index.record(holderID); !ok {
			return nil, nil, wrapCorrupt(nil, "reference %q points at missing holder %q", id, holderID)
		}
	}

	payload, err := e.readPayload(bucket, holderID)
	if err != nil {
		return nil, nil, err
	}
	return payload, m.clone(), nil
}

// GetMetadata returns the live metadata record for key.
func (e *Engine) GetMetadata(bucket, key string) (*ObjectMetadata, error) {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil, err
	}
	id, ok := bs.index.lookup(key)
	if !ok {
		return nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	m, ok := bs.index.record(id)
	if !ok {
		return nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	return m.clone(), nil
}

// Delete applies the delete rules for the live version of key.
func (e *Engine) Delete(bucket, key string) error {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return err
	}

	bs.opMu.Lock()
	defer bs.opMu.Unlock()

	id, ok := bs.index.lookup(key)
	if !ok {
		return newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	m, ok := bs.index.record(id)
	if !ok {
		return newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}

	switch m.Role() {
	case RoleHolder:
		if !e.dedup.canDeleteHolder(m) {
			return newErr(KindHolderHasReferences, "object %q is a holder with %d live reference(s)", id, m.ReferenceCount)
		}
		// Metadata goes first: once the record is gone the payload is
		// unreachable, so a crash before the payload unlink only leaves
		// an orphan file for the sweep to collect, never a dangling
		// metadata record pointing at nothing.
		if err := e.meta.deleteObject(bucket, m.versionFileKey()); err != nil {
			return err
		}
		if err := e.removePayload(bucket, id); err != nil {
			return err
		}
		bs.index.remove(key, id, m.ContentETag)

	case RoleReference:
		holder, ok := bs.index.record(m.DataHolderID)
		if !ok {
			loaded, err := e.meta.loadObject(bucket, m.DataHolderID)
			if err != nil {
				return wrapCorrupt(err, "reference %q points at missing holder %q", id, m.DataHolderID)
			}
			holder = loaded
		}
		// holder may be the live pointer cached in bs.index.records
		// (the common case, from bs.index.record above); clone before
		// mutating so a concurrent Get/List/GetMetadata, which fetches
		// the pointer under an RLock and clones it after releasing the
		// lock, never observes a torn read of the struct.
		updatedHolder := holder.clone()
		updatedHolder.ReferenceCount--
		if updatedHolder.ReferenceCount < 0 {
			updatedHolder.ReferenceCount = 0
		}
		if err := e.meta.saveObject(updatedHolder); err != nil {
			return err
		}
		if err := e.meta.deleteObject(bucket, m.versionFileKey()); err != nil {
			return err
		}
		bs.index.swapRecord(updatedHolder.ID, updatedHolder)
		bs.index.remove(key, id, m.ContentETag)
	}

	return nil
}

// List paginates over a bucket's live keys.
func (e *Engine) List(bucket string, opts ListOptions) (*ListResult, error) {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil, err
	}
	result := bs.index.list(opts)
	return &result, nil
}

// ListVersions returns every version of (bucket, key), newest first.
func (e *Engine) ListVersions(bucket, key string) ([]*ObjectMetadata, error) {
	if _, err := e.getBucket(bucket); err != nil {
		return nil, err
	}
	all, err := e.meta.scanBucketObjects(bucket)
	if err != nil {
		return nil, err
	}
	var out []*ObjectMetadata
	for _, m := range all {
		if m.Key == key {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) == 0 {
		return nil, newErr(KindNotFound, "object %q not found in bucket %q", key, bucket)
	}
	return out, nil
}

// loadRecords resolves a set of ids to records, preferring the
// in-memory cache and falling back to disk.
func (e *Engine) loadRecords(bs *bucketState, ids []string) []*ObjectMetadata {
	out := make([]*ObjectMetadata, 0, len(ids))
	for _, id := range ids {
		if m, ok := bs.index.record(id); ok {
			out = append(out, m)
			continue
		}
	}
	return out
}

func (e *Engine) writePayload(bucket, id string, payload []byte) error {
	path := e.paths.contentFile(bucket, id)
	tmp := e.paths.contentTmpFile(bucket, id)
	if err := mkdirAll(path); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapIoErr(err, "open temp payload file for %q", id)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapIoErr(err, "write temp payload file for %q", id)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapIoErr(err, "fsync temp payload file for %q", id)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrapIoErr(err, "close temp payload file for %q", id)
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapIoErr(err, "rename payload file into place for %q", id)
	}
	return nil
}

func (e *Engine) readPayload(bucket, holderID string) ([]byte, error) {
	path := e.paths.contentFile(bucket, holderID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapCorrupt(err, "payload file missing for holder %q", holderID)
		}
		return nil, wrapIoErr(err, "read payload file for %q", holderID)
	}
	return data, nil
}

func (e *Engine) removePayload(bucket, id string) error {
	path := e.paths.contentFile(bucket, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return wrapIoErr(err, "remove payload file for %q", id)
	}
	return nil
}

func mkdirAll(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapIoErr(err, "create content directory %s", dir)
	}
	return nil
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
