// Package core is the orchestration layer.  It composes a dialer, an
// encryption connector and a retry policy into a complete client run,
// and provides a builder that assembles one from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  stream  →  nntp  →  core  →  cmd (CLI)
package core

import "context"

// Mode is one complete client run, from dialing to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
