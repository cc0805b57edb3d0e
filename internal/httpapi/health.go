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

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sevino/sevino/internal/engine"
)

// liveness answers "/" with a bare liveness string, a shallow
// load-balancer probe shape. It bypasses the {success,data,error}
// envelope, like binary downloads do.
func (a *API) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("sevino is running"))
}

// health answers "/health" with exactly {status,timestamp}. It
// bypasses the {success,data,error} envelope since the shape is fixed,
// not derived from any individual operation's payload.
func (a *API) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// selftest drives the deterministic scenario runner against a scratch
// subdirectory of the configured data root and reports pass/fail for
// every scenario and invariant.
func (a *API) selftest(w http.ResponseWriter, r *http.Request) {
	report, err := engine.RunSelfTest(r.Context(), a.cfg.Engine.DataRoot)
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, report)
}
