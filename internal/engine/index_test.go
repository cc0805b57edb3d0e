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
	"testing"
	"time"
)

func TestGlobMatch(t *testing.T) {
	testCases := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "anything", true},
		{`"abc"`, `"abc"`, true},
		{`"a*c"`, `"abc"`, true},
		{`"a*c"`, `"ac"`, true},
		{`"a*c"`, `"abd"`, false},
		{`*tag*`, `"my-tag-1"`, true},
	}
	for _, tc := range testCases {
		if got := globMatch(tc.pattern, tc.s); got != tc.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tc.pattern, tc.s, got, tc.want)
		}
	}
}

func TestBucketIndexListPagination(t *testing.T) {
	bi := newBucketIndex()
	now := time.Now().UTC()
	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("k%02d", i)
		m := &ObjectMetadata{
			ID: key, Key: key, Size: 1, ContentETag: `"x"`,
			DataHolderID: HolderSelf, CreatedAt: now, IsLatest: true,
		}
		bi.install(m)
	}

	seen := map[string]bool{}
	marker := ""
	for {
		res := bi.list(ListOptions{MaxKeys: 7, Marker: marker})
		for _, e := range res.Entries {
			if seen[e.Key] {
				t.Fatalf("key %q returned twice", e.Key)
			}
			seen[e.Key] = true
		}
		if !res.IsTruncated {
			break
		}
		marker = res.NextMarker
	}
	if len(seen) != 25 {
		t.Fatalf("expected 25 distinct keys, got %d", len(seen))
	}
}

func TestBucketIndexDelimiter(t *testing.T) {
	bi := newBucketIndex()
	now := time.Now().UTC()
	for _, key := range []string{"a/1", "a/2", "b/1", "c"} {
		m := &ObjectMetadata{
			ID: key, Key: key, Size: 1, ContentETag: `"x"`,
			DataHolderID: HolderSelf, CreatedAt: now, IsLatest: true,
		}
		bi.install(m)
	}
	res := bi.list(ListOptions{Delimiter: "/"})
	var prefixes, objects int
	for _, e := range res.Entries {
		if e.IsPrefix {
			prefixes++
		} else {
			objects++
		}
	}
	if prefixes != 2 {
		t.Errorf("expected 2 common prefixes, got %d", prefixes)
	}
	if objects != 1 {
		t.Errorf("expected 1 bare object, got %d", objects)
	}
}

func TestChooseHolder(t *testing.T) {
	d := newDedupCoordinator()
	now := time.Now().UTC()
	h1 := &ObjectMetadata{ID: "h1", DataHolderID: HolderSelf, ReferenceCount: 1, CreatedAt: now}
	h2 := &ObjectMetadata{ID: "h2", DataHolderID: HolderSelf, ReferenceCount: 3, CreatedAt: now.Add(time.Second)}
	ref := &ObjectMetadata{ID: "r1", DataHolderID: "h1"}

	got := d.chooseHolder([]*ObjectMetadata{h1, h2, ref})
	if got.ID != "h2" {
		t.Errorf("expected highest-refcount holder h2, got %s", got.ID)
	}

	tie1 := &ObjectMetadata{ID: "tb", DataHolderID: HolderSelf, ReferenceCount: 0, CreatedAt: now}
	tie2 := &ObjectMetadata{ID: "ta", DataHolderID: HolderSelf, ReferenceCount: 0, CreatedAt: now}
	got = d.chooseHolder([]*ObjectMetadata{tie1, tie2})
	if got.ID != "ta" {
		t.Errorf("expected lexicographically smallest id on tie, got %s", got.ID)
	}
}
