// Package aggregates defines the write boundaries of the publishing pipeline.
//
// Contracts here carry no persistence detail; they describe which guarded
// state changes a lesson draft accepts and the typed errors they fail with.
package aggregates
