// Package pipeline turns raw notification threads into deduplicated,
// human-readable alerts.
//
// One poll cycle runs these stages in order:
//
//	thread filter -> timeline enrichment -> activity filter ->
//	reduction -> merge collapse -> workflow-pass filter ->
//	delivery gate -> formatter -> sink
//
// Reduction and merge collapse are pure functions; the gate and the
// workflow-pass cache are the only state carried across cycles.
package pipeline
