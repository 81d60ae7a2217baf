// Package pkg provides shared utilities for the usbip stub driver.
//
// It carries the pieces every other package leans on:
//
//   - Structured diagnostics via Go's standard [log/slog] package, tagged
//     with a [Component] category
//   - Sentinel errors for allocation failure, missing keys, and malformed
//     descriptor data
//
// # Logging
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDevconf, "configuration applied", "value", 1)
//
// # Errors
//
//	if errors.Is(err, pkg.ErrNoMemory) {
//	    // Fail the request; a higher layer may retry.
//	}
package pkg
