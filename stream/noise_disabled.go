//go:build nonoise

package stream

var noiseBackend backend
