// Package metrics exposes Prometheus metrics for batch processing. The
// collector owns its own registry so tests and embedding programs never
// collide on the global default registry.
package metrics
