// Package aggregates implements the domain aggregate contracts over gorm.
//
// Each write runs inside one transaction, reads the draft it guards and
// finishes with a compare-and-set on the observed publish state.
package aggregates
