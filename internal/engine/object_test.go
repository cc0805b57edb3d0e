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

// Scenario 1.
func TestScenarioBasicRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.CreateBucket("b"); err != nil {
		t.Fatal(err)
	}
	m, err := e.Put("b", "x", []byte("hello"), PutOptions{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if want := `"5d41402abc4b2a76b9719d911017c592"`; m.ETag != want {
		t.Fatalf("ETag = %s, want %s", m.ETag, want)
	}
	data, meta, err := e.Get("b", "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("Get body = %q, want hello", data)
	}
	if meta.ETag != m.ETag {
		t.Fatalf("Get ETag = %s, want %s", meta.ETag, m.ETag)
	}
}

// Scenario 2.
func TestScenarioRejectDedup(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "x", []byte("hello"), PutOptions{})

	if _, err := e.Put("b", "y", []byte("hello"), PutOptions{DedupMode: DedupReject}); KindOf(err) != KindDuplicateContent {
		t.Fatalf("expected DuplicateContent, got %v", err)
	}
	if _, err := e.Put("b", "y", []byte("world"), PutOptions{DedupMode: DedupReject}); err != nil {
		t.Fatalf("expected success for novel content, got %v", err)
	}
}

// Scenario 3.
func TestScenarioReferenceDedupAndHolderPinning(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	x, _ := e.Put("b", "x", []byte("hello"), PutOptions{})

	y, err := e.Put("b", "y", []byte("hello"), PutOptions{DedupMode: DedupReference})
	if err != nil {
		t.Fatalf("Put y: %v", err)
	}
	if y.DataHolderID != x.ID {
		t.Fatalf("y.DataHolderID = %s, want %s", y.DataHolderID, x.ID)
	}
	if y.ReferenceCount != 0 {
		t.Fatalf("y.ReferenceCount = %d, want 0 (y is a reference, not a holder)", y.ReferenceCount)
	}

	xm, _ := e.GetMetadata("b", "x")
	if xm.ReferenceCount != 1 {
		t.Fatalf("x.ReferenceCount = %d, want 1", xm.ReferenceCount)
	}

	if err := e.Delete("b", "x"); KindOf(err) != KindHolderHasReferences {
		t.Fatalf("expected HolderHasReferences, got %v", err)
	}
	if err := e.Delete("b", "y"); err != nil {
		t.Fatalf("Delete y: %v", err)
	}
	xm, _ = e.GetMetadata("b", "x")
	if xm.ReferenceCount != 0 {
		t.Fatalf("x.ReferenceCount after deleting y = %d, want 0", xm.ReferenceCount)
	}
	if err := e.Delete("b", "x"); err != nil {
		t.Fatalf("Delete x after refcount reached 0: %v", err)
	}
}

// Scenario 4.
func TestScenarioAllowModeDoesNotDedup(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "x", []byte("hello"), PutOptions{})

	z, err := e.Put("b", "z", []byte("hello"), PutOptions{DedupMode: DedupAllow})
	if err != nil {
		t.Fatal(err)
	}
	if z.DataHolderID != HolderSelf {
		t.Fatalf("allow mode must never create a reference, got holder=%s", z.DataHolderID)
	}
	xPath := e.paths.contentFile("b", "b/x#1")
	zPath := e.paths.contentFile("b", z.ID)
	if xPath == zPath {
		t.Fatalf("expected distinct payload files for x and z")
	}
}

// Scenario 5.
func TestScenarioCustomMetadataFilter(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "a", []byte("A"), PutOptions{UserMetadata: map[string]string{"bizid": "1"}})
	e.Put("b", "b", []byte("B"), PutOptions{UserMetadata: map[string]string{"bizid": "2"}})

	res, err := e.List("b", ListOptions{UserMetadataFilters: map[string]string{"bizid": "1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "a" {
		t.Fatalf("expected only key 'a', got %+v", res.Entries)
	}
}

// Scenario 6.
func TestScenarioMetadataEditPreservesBytes(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "x", []byte("hello"), PutOptions{})

	tag := `"my-tag"`
	if _, err := e.PutMetadata("b", "x", MetadataEdit{CustomETag: &tag}); err != nil {
		t.Fatal(err)
	}
	data, m, err := e.Get("b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Fatalf("payload changed by metadata edit: %q", data)
	}
	if m.ETag != tag {
		t.Fatalf("ETag = %s, want %s", m.ETag, tag)
	}

	res, _ := e.List("b", ListOptions{ETagFilter: tag})
	if len(res.Entries) != 1 {
		t.Fatalf("expected lookup by new etag to find x, got %+v", res.Entries)
	}
	orig := `"5d41402abc4b2a76b9719d911017c592"`
	res, _ = e.List("b", ListOptions{ETagFilter: orig})
	if len(res.Entries) != 0 {
		t.Fatalf("expected lookup by original md5 etag to find nothing, got %+v", res.Entries)
	}
}

// A deleted key must be freely reusable by a later fresh put.
func TestNoResurrectionAfterDelete(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "x", []byte("hello"), PutOptions{})
	if err := e.Delete("b", "x"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := e.Get("b", "x"); KindOf(err) != KindNotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	if _, err := e.Put("b", "x", []byte("again"), PutOptions{}); err != nil {
		t.Fatal(err)
	}
	data, _, err := e.Get("b", "x")
	if err != nil || string(data) != "again" {
		t.Fatalf("expected fresh put to succeed, got %q, %v", data, err)
	}
}

// Startup recovery must reproduce pre-shutdown state, including a
// dedup reference relationship.
func TestStartupRecoveryReproducesState(t *testing.T) {
	dir := t.TempDir()
	e1 := New(Config{DataRoot: dir})
	if err := e1.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	e1.CreateBucket("b")
	e1.Put("b", "x", []byte("hello"), PutOptions{})
	e1.Put("b", "y", []byte("hello"), PutOptions{DedupMode: DedupReference})

	e2 := New(Config{DataRoot: dir})
	if err := e2.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	data, m, err := e2.Get("b", "y")
	if err != nil {
		t.Fatalf("Get y after reload: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("payload lost across reload: %q", data)
	}
	if m.DataHolderID != "b/x#1" {
		t.Fatalf("reference relationship lost across reload: holder=%s", m.DataHolderID)
	}
	xm, err := e2.GetMetadata("b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if xm.ReferenceCount != 1 {
		t.Fatalf("refcount not recomputed correctly on reload: %d", xm.ReferenceCount)
	}
}

func TestMultipartPutIsStableAndCollisionFree(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")

	m1, err := e.MultipartPut("b", "big.bin", []byte("part-one"), MultipartPutOptions{
		PartNumber: 1, TotalParts: 2, UploadID: "upload-A", ContentType: "application/octet-stream",
	})
	if err != nil {
		t.Fatal(err)
	}
	m2, err := e.MultipartPut("b", "big.bin", []byte("part-one-again"), MultipartPutOptions{
		PartNumber: 1, TotalParts: 2, UploadID: "upload-B",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m1.Key == m2.Key {
		t.Fatalf("expected distinct keys across upload ids, got both %s", m1.Key)
	}
	if m1.UserMetadata["multipart_upload_id"] != "upload-A" {
		t.Fatalf("expected upload id carried in user_metadata")
	}
	if _, err := e.MultipartPut("b", "big.bin", []byte("x"), MultipartPutOptions{PartNumber: 3, TotalParts: 2, UploadID: "u"}); KindOf(err) != KindInvalidMultipart {
		t.Fatalf("expected InvalidMultipart for part_number > total_parts, got %v", err)
	}
}

func TestListVersionsNewestFirst(t *testing.T) {
	e := newTestEngine(t)
	e.CreateBucket("b")
	e.Put("b", "x", []byte("v1"), PutOptions{})
	e.Put("b", "x", []byte("v2"), PutOptions{})
	e.Put("b", "x", []byte("v3"), PutOptions{})

	versions, err := e.ListVersions("b", "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(versions))
	}
	if versions[0].VersionID != "3" || versions[2].VersionID != "1" {
		t.Fatalf("expected newest-first ordering, got %+v", versions)
	}
}

func TestPayloadTooLarge(t *testing.T) {
	e := New(Config{DataRoot: t.TempDir(), MaxPayloadSize: 4})
	e.Load(context.Background())
	e.CreateBucket("b")
	if _, err := e.Put("b", "x", []byte("hello"), PutOptions{}); KindOf(err) != KindPayloadTooLarge {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}
