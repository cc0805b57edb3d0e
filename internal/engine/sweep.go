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
	"os"
	"path/filepath"
)

// SweepReport summarizes one SweepOrphans pass.
type SweepReport struct {
	BucketsScanned int      `json:"buckets_scanned"`
	FilesRemoved   []string `json:"files_removed"`
}

// SweepOrphans walks every bucket's content tree and removes payload
// files that no holder metadata record references. It is an explicitly
// invoked operation, not a background goroutine, so a caller controls
// when the scan cost is paid; it is opt-in maintenance tooling, not
// part of any request path.
//
// A file becomes orphaned by a crash (or failed commit) between
// payload-write and metadata-commit on put, or between the metadata
// unlink and the payload unlink on a holder delete; SweepOrphans is
// the recovery for those windows, recomputing derived truth from what
// is actually on disk rather than trusting a cached index.
func (e *Engine) SweepOrphans(ctx context.Context) (*SweepReport, error) {
	e.registryMu.RLock()
	names := make([]string, 0, len(e.buckets))
	for n := range e.buckets {
		names = append(names, n)
	}
	e.registryMu.RUnlock()

	report := &SweepReport{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.sweepBucket(ctx, name, report); err != nil {
			return report, err
		}
		report.BucketsScanned++
	}
	return report, nil
}

// sweepBucket holds the bucket's opMu across the scan so no concurrent
// put/delete can write or remove a payload file mid-sweep, and diffs
// the set of on-disk content files against the set reachable from a
// live holder record.
func (e *Engine) sweepBucket(ctx context.Context, bucket string, report *SweepReport) error {
	bs, err := e.getBucket(bucket)
	if err != nil {
		return nil // bucket deleted concurrently; nothing to sweep
	}

	bs.opMu.Lock()
	defer bs.opMu.Unlock()

	records, err := e.meta.scanBucketObjects(bucket)
	if err != nil {
		return err
	}

	expected := make(map[string]bool, len(records))
	for _, m := range records {
		if m.Role() == RoleHolder {
			expected[e.paths.contentFile(bucket, m.ID)] = true
		}
	}

	root := e.paths.bucketDir(bucket)
	metaDir := filepath.Join(root, metaDirName)

	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return wrapIoErr(walkErr, "walk content tree for bucket %q", bucket)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".tmp" {
			// In-flight write; never collected mid-upload.
			return nil
		}
		if expected[path] {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return wrapIoErr(err, "remove orphan payload file %s", path)
		}
		report.FilesRemoved = append(report.FilesRemoved, path)
		return nil
	})
}
