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

	"github.com/minio/mux"

	"github.com/sevino/sevino/internal/engine"
)

type createBucketRequest struct {
	Name string `json:"name"`
}

func (a *API) listBuckets(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, a.eng.ListBuckets())
}

func (a *API) createBucket(w http.ResponseWriter, r *http.Request) {
	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r, w, engine.NewInvalidRequest("malformed JSON body: %v", err))
		return
	}
	info, err := a.eng.CreateBucket(req.Name)
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusCreated, info)
}

func (a *API) statBucket(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	info, err := a.eng.GetBucket(name)
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, info)
}

func (a *API) deleteBucket(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := a.eng.DeleteBucket(name); err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"name": name, "deleted": "true"})
}
