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
	"net/http"

	"github.com/minio/mux"

	"github.com/sevino/sevino/internal/config"
	"github.com/sevino/sevino/internal/engine"
)

// API holds the dependencies every handler needs. It is a value
// constructed by New, never a package global.
type API struct {
	eng *engine.Engine
	cfg config.Config
}

// New builds the HTTP handler for eng/cfg.
func New(eng *engine.Engine, cfg config.Config) http.Handler {
	a := &API{eng: eng, cfg: cfg}
	return a.router()
}

// router builds the final http.Handler, composing the route table with
// the CORS and generic-handler chains. `SkipClean(true)` stops
// minio/mux from normalizing URL paths so object keys containing ".."
// or doubled slashes are not silently rewritten.
func (a *API) router() http.Handler {
	router := mux.NewRouter().SkipClean(true).UseEncodedPath()

	router.Methods(http.MethodGet).Path("/").HandlerFunc(a.liveness)
	router.Methods(http.MethodGet).Path("/health").HandlerFunc(a.health)

	api := router.PathPrefix("/api").Subrouter()

	api.Methods(http.MethodGet).Path("/selftest").HandlerFunc(a.selftest)

	api.Methods(http.MethodGet).Path("/buckets").HandlerFunc(a.listBuckets)
	api.Methods(http.MethodPost).Path("/buckets").HandlerFunc(a.createBucket)
	api.Methods(http.MethodGet).Path("/buckets/{name}").HandlerFunc(a.statBucket)
	api.Methods(http.MethodDelete).Path("/buckets/{name}").HandlerFunc(a.deleteBucket)

	api.Methods(http.MethodGet).Path("/buckets/{name}/objects").HandlerFunc(a.listObjects)

	// More specific object sub-resource routes are registered before
	// the bare object route below: mux tries routes in registration
	// order, and an unanchored {key:.+} would otherwise swallow the
	// "/metadata", "/versions" and "/multipart" suffixes.
	api.Methods(http.MethodGet).Path("/buckets/{name}/objects/{key:.+}/metadata").HandlerFunc(a.getObjectMetadata)
	api.Methods(http.MethodPut).Path("/buckets/{name}/objects/{key:.+}/metadata").HandlerFunc(a.putObjectMetadata)
	api.Methods(http.MethodGet).Path("/buckets/{name}/objects/{key:.+}/versions").HandlerFunc(a.listVersions)
	api.Methods(http.MethodPut).Path("/buckets/{name}/objects/{key:.+}/multipart").HandlerFunc(a.multipartPut)

	api.Methods(http.MethodPut).Path("/buckets/{name}/objects/{key:.+}").HandlerFunc(a.putObject)
	api.Methods(http.MethodGet).Path("/buckets/{name}/objects/{key:.+}").HandlerFunc(a.getObject)
	api.Methods(http.MethodDelete).Path("/buckets/{name}/objects/{key:.+}").HandlerFunc(a.deleteObject)

	for _, mw := range globalMiddlewares {
		router.Use(mux.MiddlewareFunc(mw))
	}

	return wrapCORS(a.cfg.CORS, router)
}
