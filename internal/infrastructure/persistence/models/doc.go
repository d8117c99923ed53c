// Package models contains GORM persistence models for the settlement tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain and
// FromDomain, and repositories only ever hand domain values to callers.
//
//   - base.go: shared id, timestamp, version and company columns
//   - settlement.go: periods, documents with lines, payments, allocations
//   - directory.go: parties and cash/bank accounts
package models
