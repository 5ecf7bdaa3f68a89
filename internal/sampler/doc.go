// Package sampler turns per-frame eye counts into blink and presence
// intervals.
//
// Sampler is the pure state machine: Observe takes one frame's eye count and
// capture time and returns a Step. Loop drives a Sampler from a FrameSource
// and a Detector and hands every closed window to an IntervalSink.
//
// # Presence
//
// A frame with at least one eye marks the user present and adds the time
// since the previous frame to the window's presence. The user is marked
// absent only after AbsenceFrames consecutive frames without eyes, so a
// single dropped detection does not count as leaving.
//
// # Blinks
//
// A blink is a falling edge from two eyes to fewer than two, counted only if
// at least BlinkRefractory has passed since the previous blink.
//
// # Windows
//
// When presence reaches Window the sampler emits an IntervalEntry spanning
// the window start to the current frame and starts the next window at that
// frame. Windows are contiguous.
package sampler
