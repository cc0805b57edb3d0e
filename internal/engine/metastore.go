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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// metadataStore reads and writes the on-disk JSON metadata records.
// Writes are committed via write-temp-then-rename so a reader never
// observes a torn file.
type metadataStore struct {
	paths *pathResolver
}

func newMetadataStore(paths *pathResolver) *metadataStore {
	return &metadataStore{paths: paths}
}

// writeJSONAtomic writes v to path by first writing to a temp sibling,
// flushing, and renaming into place.
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wrapIoErr(err, "create metadata directory for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return wrapIoErr(err, "marshal metadata for %s", path)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapIoErr(err, "open temp metadata file %s", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapIoErr(err, "write temp metadata file %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return wrapIoErr(err, "fsync temp metadata file %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return wrapIoErr(err, "close temp metadata file %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return wrapIoErr(err, "rename metadata file into place %s", path)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return wrapCorrupt(err, "metadata file %s is not valid JSON", path)
	}
	return nil
}

func (s *metadataStore) saveBucket(b *BucketInfo) error {
	return writeJSONAtomic(s.paths.bucketMetaFile(b.Name), b)
}

func (s *metadataStore) loadBucket(name string) (*BucketInfo, error) {
	var b BucketInfo
	if err := readJSON(s.paths.bucketMetaFile(name), &b); err != nil {
		if os.IsNotExist(err) {
			return nil, newErr(KindBucketNotFound, "bucket %q not found", name)
		}
		return nil, wrapIoErr(err, "read bucket metadata for %q", name)
	}
	return &b, nil
}

func (s *metadataStore) deleteBucketMeta(name string) error {
	if err := os.RemoveAll(s.paths.bucketDir(name)); err != nil {
		return wrapIoErr(err, "remove bucket directory for %q", name)
	}
	return nil
}

func (s *metadataStore) saveObject(m *ObjectMetadata) error {
	return writeJSONAtomic(s.paths.objectMetaFile(m.BucketName, m.versionFileKey()), m)
}

func (s *metadataStore) loadObject(bucket, versionFileKey string) (*ObjectMetadata, error) {
	var m ObjectMetadata
	if err := readJSON(s.paths.objectMetaFile(bucket, versionFileKey), &m); err != nil {
		if os.IsNotExist(err) {
			return nil, newErr(KindNotFound, "object metadata %q/%q not found", bucket, versionFileKey)
		}
		return nil, wrapIoErr(err, "read object metadata for %q/%q", bucket, versionFileKey)
	}
	return &m, nil
}

func (s *metadataStore) deleteObject(bucket, versionFileKey string) error {
	path := s.paths.objectMetaFile(bucket, versionFileKey)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return wrapIoErr(err, "remove object metadata %s", path)
	}
	return nil
}

// versionFileKey is the on-disk metadata filename stem for a specific
// version: "{key}@{version_id}". The live pointer always targets the
// filename stem "{key}" with no suffix, written alongside it, so a
// startup scan can tell live records from historical ones without
// consulting the index.
func (m *ObjectMetadata) versionFileKey() string {
	if m.IsLatest {
		return m.Key
	}
	return m.Key + "@" + m.VersionID
}

// scanBucketObjects walks a bucket's objects metadata directory and
// returns every record found, live and historical alike. Used by
// the startup rebuild and by ListVersions.
func (s *metadataStore) scanBucketObjects(bucket string) ([]*ObjectMetadata, error) {
	dir := s.paths.objectsMetaDir(bucket)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIoErr(err, "scan objects metadata directory %s", dir)
	}
	var out []*ObjectMetadata
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var m ObjectMetadata
		if err := readJSON(filepath.Join(dir, e.Name()), &m); err != nil {
			return nil, wrapCorrupt(err, "corrupt object metadata file %s", e.Name())
		}
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// listBucketNames scans dataRoot for bucket directories carrying a
// bucket.json record.
func (s *metadataStore) listBucketNames(dataRoot string) ([]string, error) {
	entries, err := os.ReadDir(dataRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wrapIoErr(err, "scan data root %s", dataRoot)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(s.paths.bucketMetaFile(e.Name())); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
