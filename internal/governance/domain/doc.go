// Package domain holds the governance engine's core types and pure state
// transitions: response tiers, the proposal lifecycle, signer contribution
// scoring, and incentive pool arithmetic.
//
// Functions in this package never touch storage or perform I/O; services
// apply the returned values under their own concurrency discipline.
package domain
