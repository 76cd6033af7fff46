// Package flowtrace provides a minimal public façade for capturing and
// replaying object flow graphs without importing internal packages. It
// re-exports the core graph types for convenience and exposes a Runtime with
// simple methods to capture, replay and archive graphs.
package flowtrace
