// Package service orchestrates the core components of the
// exchange: fill state, ledger, settlement journal, and outbox.
//
// It provides a clean API for matching, cancelling, and
// querying orders, decoupled from network transports like gRPC.
package service
