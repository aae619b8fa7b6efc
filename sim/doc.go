// Package sim provides the shared kernel for the classroom simulators.
//
// # Reading Guide
//
// Two shapes of output exist across the sub-packages:
//   - computations (numeric, errctl, rle, rsa, boolean, cyk, normalize) return a
//     value plus a human-readable step trace recorded with sim/trace.
//   - timelines (arq, mac, traffic, routing, scheduling) return a finite,
//     precomputed []Event whose entries embed Frame. A player indexes into the
//     slice; nothing in this module runs live timers.
//
// # Key Types
//
//   - Frame: time, type and description shared by every timeline event.
//   - Clock: the logical counter generators advance while emitting events.
//   - PartitionedRNG: seeded, per-subsystem randomness for the generators that
//     need it (CSMA/CD backoff, traffic arrivals), so every run is reproducible
//     from a single seed.
//
// The sim/scenario package ties the sub-packages together behind one dispatcher
// used by the CLI and the HTTP API.
package sim
