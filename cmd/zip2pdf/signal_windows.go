//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// notifyContext cancels a running conversion or drains the HTTP server on
// Ctrl-C; there is no SIGTERM to listen for on Windows.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
