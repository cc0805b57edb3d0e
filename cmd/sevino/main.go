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

// Command sevino starts the object storage HTTP server: a minio/cli
// launcher around a plain net/http.Server, with configuration resolved
// from SEVINO_* environment variables and a graceful shutdown on
// SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/cli"

	"github.com/sevino/sevino/internal/config"
	"github.com/sevino/sevino/internal/engine"
	"github.com/sevino/sevino/internal/httpapi"
	"github.com/sevino/sevino/internal/logger"
)

var serverFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "address",
		Usage:  "bind to a specific ADDRESS:PORT, overrides SEVINO_HOST/SEVINO_PORT",
		EnvVar: "SEVINO_ADDRESS",
	},
	cli.StringFlag{
		Name:   "data-dir",
		Usage:  "directory under which bucket, metadata and content files are stored",
		EnvVar: config.EnvDataDir,
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "sevino"
	app.Usage = "HTTP-accessible object storage with content deduplication"
	app.Flags = serverFlags
	app.Action = serverMain
	app.HideVersion = true

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serverMain(ctx *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err, "unable to load configuration")
	}
	if addr := ctx.String("address"); addr != "" {
		host, port, splitErr := splitHostPort(addr)
		if splitErr != nil {
			logger.Fatal(splitErr, "invalid --address value", "address", addr)
		}
		cfg.Host, cfg.Port = host, port
	}
	if dir := ctx.String("data-dir"); dir != "" {
		cfg.Engine.DataRoot = dir
	}

	if err := os.MkdirAll(cfg.Engine.DataRoot, 0o755); err != nil {
		logger.Fatal(err, "unable to create data directory", "data_dir", cfg.Engine.DataRoot)
	}

	eng := engine.New(cfg.Engine)

	bgCtx := context.Background()
	if err := eng.Load(bgCtx); err != nil {
		logger.Fatal(err, "unable to load existing state from data directory", "data_dir", cfg.Engine.DataRoot)
	}

	handler := httpapi.New(eng, cfg)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
	}

	serveErrs := make(chan error, 1)
	go func() {
		logger.Info(bgCtx, "sevino listening", "addr", cfg.Addr(), "data_dir", cfg.Engine.DataRoot)
		serveErrs <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrs:
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal(err, "server exited unexpectedly")
		}
	case s := <-sig:
		logger.Info(bgCtx, "shutting down", "signal", s.String())
		shutdownCtx, cancel := context.WithTimeout(bgCtx, 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogIf(bgCtx, err, "graceful shutdown failed")
		}
	}

	logger.Sync()
	return nil
}

func splitHostPort(addr string) (host, port string, err error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("address %q must be in HOST:PORT form", addr)
}
