// Package metrics provides build and dev-server metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics
// cost nothing unless a real implementation is injected:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	orch := build.New(cfg, build.WithRecorder(rec))
//	mux.Handle("/__metrics", metrics.HTTPHandler(reg))
package metrics
