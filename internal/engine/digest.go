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
	"crypto/md5" //nolint:gosec // content fingerprint, not a security digest.
	"encoding/hex"
	"strings"
)

// digest computes the default etag for a payload: lowercase hex MD5
// wrapped in double quotes, matching the wire format in Scenario 1.
func digest(payload []byte) string {
	sum := md5.Sum(payload) //nolint:gosec
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// validateCustomETag checks a caller-supplied etag override: must be
// a quoted ASCII string of at least one inner character, no control
// bytes.
func validateCustomETag(s string) error {
	if len(s) < 3 || s[0] != '"' || s[len(s)-1] != '"' {
		return newErr(KindInvalidETag, "custom etag must be a quoted string")
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return newErr(KindInvalidETag, "custom etag must have at least one inner character")
	}
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c < 0x20 || c == 0x7f || c > 0x7e {
			return newErr(KindInvalidETag, "custom etag must not contain control or non-ASCII bytes")
		}
		if c == '"' {
			return newErr(KindInvalidETag, "custom etag must not contain an embedded quote")
		}
	}
	return nil
}

// validateKey checks a caller-supplied object key: arbitrary byte-safe
// string of at most 1024 characters, no control characters.
func validateKey(key string) error {
	if key == "" {
		return newErr(KindInvalidKey, "key must not be empty")
	}
	if len(key) > 1024 {
		return newErr(KindInvalidKey, "key exceeds 1024 characters")
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 0x20 || c == 0x7f {
			return newErr(KindInvalidKey, "key contains a control character at byte %d", i)
		}
	}
	return nil
}

// validateUserMetadata rejects metadata whose keys contain NUL, CR or
// LF, or whose keys and values together exceed 2 KiB.
func validateUserMetadata(m map[string]string) error {
	const maxUserDataSize = 2 * 1024
	size := 0
	for k, v := range m {
		if strings.ContainsAny(k, "\x00\r\n") {
			return newErr(KindInvalidCustomMetadata, "metadata key %q contains a forbidden byte", k)
		}
		size += len(k) + len(v)
	}
	if size > maxUserDataSize {
		return newErr(KindInvalidCustomMetadata, "user metadata exceeds %d bytes", maxUserDataSize)
	}
	return nil
}

// validateBucketName checks a bucket name: 3-63 chars, lowercase
// letters, digits, '-', '_'.
func validateBucketName(name string) error {
	if len(name) < 3 || len(name) > 63 {
		return newErr(KindInvalidKey, "bucket name must be 3-63 characters")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		ok := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			return newErr(KindInvalidKey, "bucket name contains an invalid character %q", string(c))
		}
	}
	return nil
}
