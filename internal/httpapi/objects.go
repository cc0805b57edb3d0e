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
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/minio/mux"

	"github.com/sevino/sevino/internal/engine"
)

const headerContentType = "Content-Type"
const headerETag = "Etag"

// userMetadataFromQuery decodes the `custom` query parameter: a JSON
// object merged into the object's user_metadata.
func userMetadataFromQuery(q url.Values) (map[string]string, error) {
	raw := q.Get("custom")
	if raw == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, engine.NewInvalidRequest("custom query parameter is not a JSON object of strings: %v", err)
	}
	return out, nil
}

func writeUserMetadataHeaders(w http.ResponseWriter, m map[string]string) {
	for k, v := range m {
		w.Header().Set("X-Sevino-Meta-"+k, v)
	}
}

func (a *API) putObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]
	q := r.URL.Query()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(r, w, engine.NewInvalidRequest("reading request body: %v", err))
		return
	}

	mode, err := engine.ParseDedupMode(q.Get("deduplication_mode"))
	if err != nil {
		writeError(r, w, err)
		return
	}

	userMeta, err := userMetadataFromQuery(q)
	if err != nil {
		writeError(r, w, err)
		return
	}

	contentType := q.Get("content_type")
	if contentType == "" {
		contentType = r.Header.Get(headerContentType)
	}

	m, err := a.eng.Put(bucket, key, body, engine.PutOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
		DedupMode:    mode,
	})
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (a *API) getObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]

	data, m, err := a.eng.Get(bucket, key)
	if err != nil {
		writeError(r, w, err)
		return
	}

	w.Header().Set(headerContentType, m.ContentType)
	w.Header().Set(headerETag, m.ETag)
	w.Header().Set("Content-Length", strconv.FormatInt(m.Size, 10))
	writeUserMetadataHeaders(w, m.UserMetadata)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *API) deleteObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]

	if err := a.eng.Delete(bucket, key); err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"key": key, "deleted": "true"})
}

func (a *API) getObjectMetadata(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]

	m, err := a.eng.GetMetadata(bucket, key)
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

type putMetadataRequest struct {
	ContentType  *string           `json:"content_type"`
	UserMetadata map[string]string `json:"user_metadata"`
	CustomETag   *string           `json:"custom_etag"`
}

func (a *API) putObjectMetadata(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]

	var req putMetadataRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(r, w, engine.NewInvalidRequest("malformed JSON body: %v", err))
			return
		}
	}

	m, err := a.eng.PutMetadata(bucket, key, engine.MetadataEdit{
		ContentType:  req.ContentType,
		UserMetadata: req.UserMetadata,
		CustomETag:   req.CustomETag,
	})
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, m)
}

func (a *API) listVersions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]

	versions, err := a.eng.ListVersions(bucket, key)
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, versions)
}

func (a *API) multipartPut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, key := vars["name"], vars["key"]
	q := r.URL.Query()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(r, w, engine.NewInvalidRequest("reading request body: %v", err))
		return
	}

	partNumber, err := strconv.Atoi(q.Get("part_number"))
	if err != nil {
		writeError(r, w, engine.NewInvalidRequest("invalid or missing part_number query parameter"))
		return
	}
	totalParts, err := strconv.Atoi(q.Get("total_parts"))
	if err != nil {
		writeError(r, w, engine.NewInvalidRequest("invalid or missing total_parts query parameter"))
		return
	}

	contentType := q.Get("content_type")
	if contentType == "" {
		contentType = r.Header.Get(headerContentType)
	}

	m, err := a.eng.MultipartPut(bucket, key, body, engine.MultipartPutOptions{
		PartNumber:  partNumber,
		TotalParts:  totalParts,
		UploadID:    q.Get("upload_id"),
		ContentType: contentType,
	})
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusCreated, m)
}

func (a *API) listObjects(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket := vars["name"]

	q := r.URL.Query()
	maxKeys := 0
	if v := q.Get("max_keys"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(r, w, engine.NewInvalidRequest("invalid max_keys %q", v))
			return
		}
		maxKeys = n
	}

	filters := map[string]string{}
	for k := range q {
		const prefix = "custom_"
		if strings.HasPrefix(k, prefix) {
			filters[strings.TrimPrefix(k, prefix)] = q.Get(k)
		}
	}
	if len(filters) == 0 {
		filters = nil
	}

	res, err := a.eng.List(bucket, engine.ListOptions{
		Prefix:              q.Get("prefix"),
		Delimiter:           q.Get("delimiter"),
		MaxKeys:             maxKeys,
		Marker:              q.Get("marker"),
		ETagFilter:          q.Get("etag_filter"),
		UserMetadataFilters: filters,
	})
	if err != nil {
		writeError(r, w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
