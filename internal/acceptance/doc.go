// Package acceptance runs the connect flow features in features/ against the
// HTTP server wired to Redis stores (miniredis) and the real provider
// adapters pointed at a fake OAuth server.
package acceptance
