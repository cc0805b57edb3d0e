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

import "testing"

func TestDigest(t *testing.T) {
	testCases := []struct {
		payload string
		etag    string
	}{
		{"hello", `"5d41402abc4b2a76b9719d911017c592"`},
		{"", `"d41d8cd98f00b204e9800998ecf8427e"`},
		{"world", `"7d793037a0760186574b0282f2f435e7"`},
	}
	for _, tc := range testCases {
		if got := digest([]byte(tc.payload)); got != tc.etag {
			t.Errorf("digest(%q) = %s, want %s", tc.payload, got, tc.etag)
		}
	}
}

func TestValidateCustomETag(t *testing.T) {
	testCases := []struct {
		in      string
		wantErr bool
	}{
		{`"my-tag"`, false},
		{`""`, true},
		{`my-tag`, true},
		{"\"tag\x01\"", true},
		{`"has"quote"`, true},
		{`"ok"`, false},
	}
	for _, tc := range testCases {
		err := validateCustomETag(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateCustomETag(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
	}
}

func TestValidateKey(t *testing.T) {
	if err := validateKey(""); err == nil {
		t.Error("expected error for empty key")
	}
	if err := validateKey("a/b/c.txt"); err != nil {
		t.Errorf("unexpected error for valid key: %v", err)
	}
	if err := validateKey("bad\x00key"); err == nil {
		t.Error("expected error for control character in key")
	}
	long := make([]byte, 1025)
	for i := range long {
		long[i] = 'a'
	}
	if err := validateKey(string(long)); err == nil {
		t.Error("expected error for over-long key")
	}
}

func TestValidateBucketName(t *testing.T) {
	testCases := []struct {
		name    string
		wantErr bool
	}{
		{"ab", true},
		{"abc", false},
		{"my-bucket_01", false},
		{"Has-Upper", true},
		{"has space", true},
	}
	for _, tc := range testCases {
		err := validateBucketName(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("validateBucketName(%q) error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
