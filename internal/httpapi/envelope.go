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

// Package httpapi is the HTTP transport adapter over internal/engine.
// It owns request parsing, the JSON envelope, CORS and the route
// table; none of this is part of the storage core.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sevino/sevino/internal/engine"
	"github.com/sevino/sevino/internal/logger"
)

// envelope is the JSON response shape used by every route except the
// liveness probe, health check and binary downloads.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *string     `json:"error"`
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Error: nil})
}

func writeError(r *http.Request, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= 500 {
		logger.LogIf(r.Context(), err, "path", r.URL.Path, "method", r.Method)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Data: nil, Error: &msg})
}

// statusFor maps an engine error Kind to an HTTP status. I/O and
// invariant-violation errors are reported with a generic message;
// their detail is logged instead, never leaked to the client.
func statusFor(err error) (int, string) {
	kind := engine.KindOf(err)
	switch kind {
	case engine.KindBucketNotFound, engine.KindNotFound:
		return http.StatusNotFound, err.Error()
	case engine.KindBucketExists, engine.KindDuplicateContent, engine.KindHolderHasReferences:
		return http.StatusConflict, err.Error()
	case engine.KindInvalidKey, engine.KindInvalidETag, engine.KindInvalidCustomMetadata,
		engine.KindInvalidDedupMode, engine.KindInvalidMultipart, engine.KindInvalidRequest:
		return http.StatusBadRequest, err.Error()
	case engine.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge, err.Error()
	case engine.KindIoError, engine.KindCorruptMetadata:
		return http.StatusInternalServerError, "internal storage error"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
