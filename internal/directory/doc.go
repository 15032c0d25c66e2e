// Package directory provides ports.ExistenceChecker implementations the
// field validation engine can query: an in-memory set for development and
// tests, a Redis-backed set, and a failover that routes around a failing
// primary with a circuit breaker.
//
// Names are keyed by context (for example the XMPP domain). A lookup for a
// value in one context never matches the same value registered in another.
package directory
