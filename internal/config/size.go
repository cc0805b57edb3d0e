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

package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
)

// parseHumanSize parses a humanized size string such as "100MB" or
// "1GiB" via dustin/go-humanize.
func parseHumanSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "invalid %s value %q", EnvMaxFileSize, s)
	}
	return int64(n), nil
}

// FormatSize renders n bytes in humanized SI form (e.g. "105 MB" for
// 104857600); negative values are printed as a plain integer.
func FormatSize(n int64) string {
	if n < 0 {
		return fmt.Sprintf("%d", n)
	}
	return humanize.Bytes(uint64(n))
}
