// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command stackctl runs lifecycle commands against the collector,
// scheduler, worker and postgres compose stack.
//
//	stackctl deploy
//	stackctl logs-worker
//	stackctl clean --yes
//
// The process exits with the status of the last runtime call it issued.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// The runtime shares our process group, so it sees the terminal's
	// SIGINT directly. Catching it here keeps stackctl alive long enough
	// to collect the child's status.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], defaultDeps())
	stop()
	os.Exit(code)
}
