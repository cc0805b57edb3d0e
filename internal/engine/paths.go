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
	"crypto/sha1" //nolint:gosec // used only to fan out directories, not for security.
	"encoding/hex"
	"path/filepath"
)

const metaDirName = ".sevino.meta"

// pathResolver derives on-disk paths for bucket directories, metadata
// files and content files.
type pathResolver struct {
	dataRoot string
}

func newPathResolver(dataRoot string) *pathResolver {
	return &pathResolver{dataRoot: dataRoot}
}

// bucketDir returns the root directory for a bucket.
func (p *pathResolver) bucketDir(bucket string) string {
	return filepath.Join(p.dataRoot, bucket)
}

// bucketMetaFile returns the path of a bucket's metadata record.
func (p *pathResolver) bucketMetaFile(bucket string) string {
	return filepath.Join(p.bucketDir(bucket), metaDirName, "bucket.json")
}

// objectsMetaDir returns the directory holding per-object metadata
// records for a bucket.
func (p *pathResolver) objectsMetaDir(bucket string) string {
	return filepath.Join(p.bucketDir(bucket), metaDirName, "objects")
}

// objectMetaFile returns the metadata path for a given (bucket, key).
// Key sanitization is injective over legal keys: every byte outside
// [a-z0-9.-] is percent-hex escaped, including uppercase letters, '_',
// '/' and '%' itself,
// so two distinct keys never collide after sanitization.
func (p *pathResolver) objectMetaFile(bucket, key string) string {
	return filepath.Join(p.objectsMetaDir(bucket), sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 0, len(key)+8)
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '-':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			// Escape uppercase too so sanitizeKey is injective on
			// case-insensitive filesystems.
			out = append(out, '%', hex[c>>4], hex[c&0xf])
		default:
			out = append(out, '%', hex[c>>4], hex[c&0xf])
		}
	}
	return string(out)
}

// contentFile returns the deterministic path of an object's payload
// file, bucketed by the first two bytes of a digest of the id to bound
// directory fan-out. Only holder objects have a file at this path.
func (p *pathResolver) contentFile(bucket, id string) string {
	sum := sha1.Sum([]byte(id)) //nolint:gosec // fan-out hash, not a security boundary.
	h := hex.EncodeToString(sum[:])
	return filepath.Join(p.bucketDir(bucket), h[0:2], h[2:4], h)
}

// contentTmpFile returns a sibling temp path used for the write-then-
// rename commit protocol.
func (p *pathResolver) contentTmpFile(bucket, id string) string {
	return p.contentFile(bucket, id) + ".tmp"
}
