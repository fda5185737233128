// Package service implements the application layer: authorization,
// validation, lifecycle rules, and the transactional coupling of every
// mutation with its audit ledger entry.
package service

// Actor identifies who performs an operation. Filled from the authenticated
// request context by the transport layer.
type Actor struct {
	ID            string
	Role          string
	CorrelationID string
}
