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

import "time"

// DedupMode selects the policy applied by put when matching content
// already exists in the bucket. Validated at the API boundary; internal
// code branches on the variant, never on a string.
type DedupMode int

// Enum of dedup modes.
const (
	// DedupAllow always stores a fresh payload. Default.
	DedupAllow DedupMode = iota
	// DedupReject fails the put if any object has the same etag.
	DedupReject
	// DedupReference registers the new object as a reference to the
	// best existing holder instead of writing bytes.
	DedupReference
)

func (m DedupMode) String() string {
	switch m {
	case DedupAllow:
		return "allow"
	case DedupReject:
		return "reject"
	case DedupReference:
		return "reference"
	default:
		return "unknown"
	}
}

// ParseDedupMode validates and converts a wire-level dedup mode string.
// Empty string defaults to DedupAllow.
func ParseDedupMode(s string) (DedupMode, error) {
	switch s {
	case "", "allow":
		return DedupAllow, nil
	case "reject":
		return DedupReject, nil
	case "reference":
		return DedupReference, nil
	default:
		return DedupAllow, newErr(KindInvalidDedupMode, "unknown deduplication_mode %q", s)
	}
}

// Role is a tagged variant: an object is either a Holder of its own
// payload or a Reference to someone else's. It is derived from the
// on-disk fields, never stored as a separate field.
type Role int

const (
	// RoleHolder means the object physically owns its payload.
	RoleHolder Role = iota
	// RoleReference means the object points at another object's payload.
	RoleReference
)

// HolderSelf is the sentinel data_holder_id value meaning "this object
// owns its own payload".
const HolderSelf = "self"

// BucketInfo is the persisted and in-memory summary record for a bucket.
type BucketInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	ObjectCount int64    `json:"object_count"`
	TotalSize   int64    `json:"total_size"`
}

// ObjectMetadata is the persisted and wire-level record for one object
// version.
type ObjectMetadata struct {
	ID             string            `json:"id"`
	Key            string            `json:"key"`
	BucketName     string            `json:"bucket_name"`
	Size           int64             `json:"size"`
	ETag           string            `json:"etag"`
	ContentETag    string            `json:"content_etag"`
	ContentType    string            `json:"content_type"`
	CreatedAt      time.Time         `json:"created_at"`
	LastModified   time.Time         `json:"last_modified"`
	UserMetadata   map[string]string `json:"user_metadata"`
	DataHolderID   string            `json:"data_holder_id"`
	ReferenceCount int64             `json:"reference_count"`
	VersionID      string            `json:"version_id"`
	// IsLatest marks the version currently pointed to by the index's
	// key→id map. Not a primary-key field; persisted with the record,
	// it selects the metadata filename and is what Load uses to rebuild
	// the key→id map.
	IsLatest bool `json:"is_latest"`
}

// Role derives the object's current role from its stored fields.
func (m *ObjectMetadata) Role() Role {
	if m.DataHolderID == HolderSelf {
		return RoleHolder
	}
	return RoleReference
}

// IsHolder reports whether m physically owns a payload file.
func (m *ObjectMetadata) IsHolder() bool { return m.Role() == RoleHolder }

// clone returns a deep-enough copy safe to hand to a caller without
// aliasing engine-internal state.
func (m *ObjectMetadata) clone() *ObjectMetadata {
	cp := *m
	cp.UserMetadata = make(map[string]string, len(m.UserMetadata))
	for k, v := range m.UserMetadata {
		cp.UserMetadata[k] = v
	}
	return &cp
}

// PutOptions groups the optional arguments to Engine.Put.
type PutOptions struct {
	ContentType  string
	UserMetadata map[string]string
	DedupMode    DedupMode
}

// MetadataEdit groups the optional fields of a metadata-only update.
// A nil pointer field means "leave unchanged".
type MetadataEdit struct {
	ContentType  *string
	UserMetadata map[string]string
	CustomETag   *string
}

// MultipartPutOptions groups the arguments to Engine.MultipartPut.
type MultipartPutOptions struct {
	PartNumber  int
	TotalParts  int
	UploadID    string
	ContentType string
}

// ListOptions groups the arguments to Engine.List.
type ListOptions struct {
	Prefix              string
	Delimiter           string
	MaxKeys             int
	Marker              string
	ETagFilter          string
	UserMetadataFilters map[string]string
}

// ListEntry is either an object (IsPrefix == false) or a common prefix
// grouped by the delimiter (IsPrefix == true, Object is nil).
type ListEntry struct {
	Key      string
	IsPrefix bool
	Object   *ObjectMetadata
}

// ListResult is the paginated response of Engine.List.
type ListResult struct {
	Entries     []ListEntry
	NextMarker  string
	IsTruncated bool
}
