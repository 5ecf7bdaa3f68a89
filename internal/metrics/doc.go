// Package metrics defines observability hooks for the sampler and the store.
//
// Components depend on the Recorder interface; NoopRecorder is the default
// when metrics are not configured and PrometheusRecorder forwards to a
// Prometheus registry served by HTTPHandler.
package metrics
