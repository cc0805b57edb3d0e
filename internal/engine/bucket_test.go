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
	"context"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Config{DataRoot: t.TempDir()})
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return e
}

func TestCreateBucketValidatesNameAndUniqueness(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.CreateBucket("ab"); KindOf(err) != KindInvalidKey {
		t.Fatalf("expected InvalidKey for short name, got %v", err)
	}
	if _, err := e.CreateBucket("valid-bucket"); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	if _, err := e.CreateBucket("valid-bucket"); KindOf(err) != KindBucketExists {
		t.Fatalf("expected BucketExists on duplicate create, got %v", err)
	}
}

func TestDeleteBucketCascades(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.CreateBucket("cascade"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Put("cascade", "a", []byte("1"), PutOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Put("cascade", "b", []byte("1"), PutOptions{DedupMode: DedupReference}); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteBucket("cascade"); err != nil {
		t.Fatalf("DeleteBucket: %v", err)
	}
	if _, err := e.GetBucket("cascade"); KindOf(err) != KindBucketNotFound {
		t.Fatalf("expected BucketNotFound after delete, got %v", err)
	}
}

func TestListBucketsSortedWithLiveCounts(t *testing.T) {
	e := newTestEngine(t)
	for _, name := range []string{"zeta-bucket", "alpha-bucket"} {
		if _, err := e.CreateBucket(name); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := e.Put("alpha-bucket", "k", []byte("12345"), PutOptions{}); err != nil {
		t.Fatal(err)
	}

	buckets := e.ListBuckets()
	if len(buckets) != 2 || buckets[0].Name != "alpha-bucket" || buckets[1].Name != "zeta-bucket" {
		t.Fatalf("expected sorted buckets, got %+v", buckets)
	}
	if buckets[0].ObjectCount != 1 || buckets[0].TotalSize != 5 {
		t.Fatalf("expected live counts on alpha-bucket, got %+v", buckets[0])
	}
}
