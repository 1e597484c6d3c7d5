package main

import "github.com/xyproto/env/v2"

// config.go is the process-wide configuration surface: a small set of
// package-level globals flipped either by a CLI flag or by an
// environment variable override, the same convention the teacher uses
// for VerboseMode (set from `-v`, read everywhere as a plain bool)
// rather than a dedicated config struct threaded through every call.
// The environment side of each override goes through env/v2, the
// teacher's own declared (if barely exercised) dependency for exactly
// this kind of env-var-with-default read.

// VerboseMode turns on the `fmt.Fprintf(os.Stderr, ...)` diagnostics
// the -watch file watchers (watch_unix.go, watch_darwin.go) print, set
// from the JPC_VERBOSE environment variable; main.go also ORs it into
// the -v/-verbose setting that cli.go's build messages read.
var VerboseMode = env.Bool("JPC_VERBOSE")

// WineMode forces runexe.go to invoke `wine` even on a native Windows
// host, for testing the Wine dispatch path without rebuilding; set via
// JPC_WINE.
var WineMode = env.Bool("JPC_WINE")

// outputDirEnv returns JPC_OUTPUT_DIR, or "" if unset, letting
// cli.go's default output path resolution be overridden without a flag
// on every invocation (handy for the watch.go recompile loop, which
// reuses the same directory across runs).
func outputDirEnv() string {
	return env.StrOr("JPC_OUTPUT_DIR", "")
}

// subsystemEnv returns JPC_SUBSYSTEM ("console" or "gui"), or "" if
// unset, giving main.go's -subsystem flag an environment fallback the
// same way outputDirEnv backs -o.
func subsystemEnv() string {
	return env.StrOr("JPC_SUBSYSTEM", "")
}
