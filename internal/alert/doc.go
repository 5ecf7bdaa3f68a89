// Package alert classifies a session's blink rate and rate-limits the
// alerts raised when it drops.
//
// A Monitor is fed the running session blink count on every frame. Once the
// session has run longer than MinElapsed it computes blinks per minute and
// classifies the rate as Normal, BelowAverage or Critical. Non-normal rates
// raise an Alert at most once per MinInterval.
package alert
