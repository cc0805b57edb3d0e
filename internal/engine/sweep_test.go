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
	"testing"
)

func TestSweepOrphansRemovesUnreferencedPayload(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.CreateBucket("b"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Put("b", "x", []byte("hello"), PutOptions{}); err != nil {
		t.Fatal(err)
	}

	orphan := e.paths.contentFile("b", "b/x#orphan")
	if err := os.MkdirAll(filepath.Dir(orphan), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(orphan, []byte("leftover"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := e.SweepOrphans(context.Background())
	if err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}
	if len(report.FilesRemoved) != 1 || report.FilesRemoved[0] != orphan {
		t.Fatalf("expected exactly the orphan file removed, got %+v", report.FilesRemoved)
	}

	data, _, err := e.Get("b", "x")
	if err != nil || string(data) != "hello" {
		t.Fatalf("sweep must not disturb a live holder's payload: %q, %v", data, err)
	}
}
