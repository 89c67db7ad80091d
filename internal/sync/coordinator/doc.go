// Package coordinator schedules sync passes.
//
// It sits on top of sync.Manager and handles:
//
//   - a single pass for the one-shot sync command
//   - periodic passes in watch mode, one immediately on start, using time.Ticker
//   - persistence of the statistics of the last run
//   - sync duration and item outcome metrics
//   - change notifications
//   - graceful shutdown
//
// Passes never overlap: the ticker is served by the goroutine that runs the pass, so
// ticks that fire while a pass is still running are dropped.
//
// Failed passes are logged and persisted with the Failed phase. In watch mode the
// coordinator keeps running and the next pass starts on the next tick.
package coordinator
