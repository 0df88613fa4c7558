// Command ftpd runs a standalone anonymous FTP server rooted at a single
// directory on the local filesystem.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/anonftpd/anonftpd/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	port := pflag.IntP("port", "p", 21, "port to listen on")
	root := pflag.StringP("root", "r", "/tmp", "absolute path to serve")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	driver, err := server.NewFSDriver(*root)
	if err != nil {
		logger.Error("failed to initialize filesystem driver", "root", *root, "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	srv, err := server.NewServer(addr,
		server.WithDriver(driver),
		server.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting FTP server", "addr", addr, "root", *root)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != server.ErrServerClosed {
			logger.Error("server exited with error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			os.Exit(1)
		}
	}
}
