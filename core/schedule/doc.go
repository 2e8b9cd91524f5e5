// Package schedule plans the on/off operation of industrial machines over a
// horizon of discrete time slots under time-of-use electricity prices. It
// builds the shared feasible region (binary run, incentive and completion
// variables plus the load and peak-load rows), calibrates the two objectives
// (total electricity cost and peak load) via ideal and estimated nadir
// points, and resolves the trade-off with four approaches: preemptive
// cost-first, preemptive peak-first, normalized weighted sum and compromise
// programming. Solving is delegated to a milp.Solver; each approach builds
// fresh regions and never reuses a solved one.
package schedule
