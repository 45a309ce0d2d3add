// Package server provides the dedicated Prometheus metrics server.
//
// The metrics server runs on its own address, separate from the loopback
// redirect listener the presenter package manages, so operational metrics
// are never reachable through the OAuth callback surface.
package server
