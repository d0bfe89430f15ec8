package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"modbusgw/pkg/bridge"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd().Execute(); err != nil {
		var invErr *bridge.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, strings.TrimSpace(invErr.Message))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
