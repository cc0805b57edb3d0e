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
	"fmt"
	"os"

	"github.com/google/uuid"
)

// ScenarioResult is the outcome of one self-test scenario.
type ScenarioResult struct {
	Name  string `json:"name"`
	Pass  bool   `json:"pass"`
	Error string `json:"error,omitempty"`
}

// InvariantResult is the outcome of checking one quantified invariant
// against the state left behind by the scenario run.
type InvariantResult struct {
	Name  string `json:"name"`
	Pass  bool   `json:"pass"`
	Error string `json:"error,omitempty"`
}

// SelfTestReport is the deterministic scenario runner's output.
type SelfTestReport struct {
	Scenarios  []ScenarioResult  `json:"scenarios"`
	Invariants []InvariantResult `json:"invariants"`
}

// RunSelfTest exercises the dedup coordinator and object engine
// against six end-to-end scenarios, in a scratch subdirectory of
// dataRoot so it never touches live data, then checks the refcount-sum
// and reference-integrity invariants against the resulting state.
func RunSelfTest(ctx context.Context, dataRoot string) (*SelfTestReport, error) {
	root, err := os.MkdirTemp(dataRoot, "selftest-")
	if err != nil {
		return nil, wrapIoErr(err, "create self-test scratch directory under %s", dataRoot)
	}
	defer os.RemoveAll(root)

	e := New(Config{DataRoot: root})
	if err := e.Load(ctx); err != nil {
		return nil, err
	}

	report := &SelfTestReport{}
	run := func(name string, fn func() error) {
		err := fn()
		res := ScenarioResult{Name: name, Pass: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		report.Scenarios = append(report.Scenarios, res)
	}

	bucket := "selftest-" + uuid.NewString()[:8]

	run("basic round-trip", func() error {
		if _, err := e.CreateBucket(bucket); err != nil {
			return err
		}
		m, err := e.Put(bucket, "x", []byte("hello"), PutOptions{})
		if err != nil {
			return err
		}
		if m.ETag != `"5d41402abc4b2a76b9719d911017c592"` {
			return fmt.Errorf("unexpected etag %s", m.ETag)
		}
		data, _, err := e.Get(bucket, "x")
		if err != nil {
			return err
		}
		if string(data) != "hello" {
			return fmt.Errorf("round-trip mismatch: got %q", data)
		}
		return nil
	})

	run("reject dedup", func() error {
		if _, err := e.Put(bucket, "y", []byte("hello"), PutOptions{DedupMode: DedupReject}); KindOf(err) != KindDuplicateContent {
			return fmt.Errorf("expected DuplicateContent, got %v", err)
		}
		if _, err := e.Put(bucket, "y", []byte("world"), PutOptions{DedupMode: DedupReject}); err != nil {
			return err
		}
		return nil
	})

	run("reference dedup and holder pinning", func() error {
		m, err := e.Put(bucket, "z", []byte("hello"), PutOptions{DedupMode: DedupReference})
		if err != nil {
			return err
		}
		if m.DataHolderID == HolderSelf {
			return fmt.Errorf("expected a reference, got a fresh holder")
		}
		xm, err := e.GetMetadata(bucket, "x")
		if err != nil {
			return err
		}
		if xm.ReferenceCount != 1 {
			return fmt.Errorf("expected holder refcount 1, got %d", xm.ReferenceCount)
		}
		if err := e.Delete(bucket, "x"); KindOf(err) != KindHolderHasReferences {
			return fmt.Errorf("expected HolderHasReferences, got %v", err)
		}
		if err := e.Delete(bucket, "z"); err != nil {
			return err
		}
		xm, err = e.GetMetadata(bucket, "x")
		if err != nil {
			return err
		}
		if xm.ReferenceCount != 0 {
			return fmt.Errorf("expected holder refcount 0 after reference delete, got %d", xm.ReferenceCount)
		}
		return e.Delete(bucket, "x")
	})

	run("allow mode does not dedup", func() error {
		if _, err := e.Put(bucket, "w1", []byte("same"), PutOptions{DedupMode: DedupAllow}); err != nil {
			return err
		}
		m2, err := e.Put(bucket, "w2", []byte("same"), PutOptions{DedupMode: DedupAllow})
		if err != nil {
			return err
		}
		if m2.DataHolderID != HolderSelf {
			return fmt.Errorf("allow mode must never create a reference")
		}
		return nil
	})

	run("custom metadata filter", func() error {
		if _, err := e.Put(bucket, "a", []byte("A"), PutOptions{UserMetadata: map[string]string{"bizid": "1"}}); err != nil {
			return err
		}
		if _, err := e.Put(bucket, "b", []byte("B"), PutOptions{UserMetadata: map[string]string{"bizid": "2"}}); err != nil {
			return err
		}
		res, err := e.List(bucket, ListOptions{UserMetadataFilters: map[string]string{"bizid": "1"}})
		if err != nil {
			return err
		}
		if len(res.Entries) != 1 || res.Entries[0].Key != "a" {
			return fmt.Errorf("expected exactly key 'a', got %+v", res.Entries)
		}
		return nil
	})

	run("metadata edit preserves bytes", func() error {
		tag := `"my-tag"`
		if _, err := e.PutMetadata(bucket, "w1", MetadataEdit{CustomETag: &tag}); err != nil {
			return err
		}
		data, m, err := e.Get(bucket, "w1")
		if err != nil {
			return err
		}
		if string(data) != "same" {
			return fmt.Errorf("metadata edit must not change payload, got %q", data)
		}
		if m.ETag != tag {
			return fmt.Errorf("expected etag %s, got %s", tag, m.ETag)
		}
		return nil
	})

	checkInvariant := func(name string, fn func() error) {
		err := fn()
		res := InvariantResult{Name: name, Pass: err == nil}
		if err != nil {
			res.Error = err.Error()
		}
		report.Invariants = append(report.Invariants, res)
	}

	checkInvariant("sum of holder refcounts equals live reference count", func() error {
		return e.checkRefcountSum(bucket)
	})
	checkInvariant("every live reference's holder exists and counts it", func() error {
		return e.checkReferenceIntegrity(bucket)
	})

	return report, nil
}

// checkRefcountSum checks that the sum of every holder's
// reference_count equals the number of live references in the bucket.
func (e *Engine) checkRefcountSum(bucket string) error {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return err
	}
	bs.index.mu.RLock()
	defer bs.index.mu.RUnlock()

	var sum int64
	var liveRefs int64
	for _, m := range bs.index.records {
		if m.Role() == RoleHolder {
			sum += m.ReferenceCount
		}
		if id, ok := bs.index.current[m.Key]; ok && id == m.ID && m.Role() == RoleReference {
			liveRefs++
		}
	}
	if sum != liveRefs {
		return fmt.Errorf("sum of holder refcounts %d != live reference count %d", sum, liveRefs)
	}
	return nil
}

// checkReferenceIntegrity checks that every live reference points at
// an existing holder that counts it.
func (e *Engine) checkReferenceIntegrity(bucket string) error {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return err
	}
	bs.index.mu.RLock()
	defer bs.index.mu.RUnlock()

	for key, id := range bs.index.current {
		m, ok := bs.index.records[id]
		if !ok {
			return fmt.Errorf("live key %q points at untracked id %q", key, id)
		}
		if m.Role() != RoleReference {
			continue
		}
		holder, ok := bs.index.records[m.DataHolderID]
		if !ok {
			return fmt.Errorf("reference %q points at missing holder %q", id, m.DataHolderID)
		}
		if holder.Role() != RoleHolder {
			return fmt.Errorf("object %q referenced by %q is not a holder", holder.ID, id)
		}
		if holder.ReferenceCount < 1 {
			return fmt.Errorf("holder %q has refcount %d but is referenced by %q", holder.ID, holder.ReferenceCount, id)
		}
	}
	return nil
}
