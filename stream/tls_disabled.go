//go:build notls

package stream

var tlsBackend backend
