// Package source provides scripted frame sources for the sampler.
//
// A trace is a YAML file listing per-frame eye counts:
//
//	name: reading
//	start: 2026-03-02T09:00:00Z
//	interval: 150ms
//	frames: [2, 2, 0, 0]
//	repeat: 40
//	fail_at: 0
//
// Source replays the trace as frames carrying the eye count in Data[0], and
// TraceDetector reads it back. Together they stand in for a camera and an eye
// detector.
package source
