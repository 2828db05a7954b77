// Package store persists finished invocations to SQLite: one summary row
// per invocation plus its trace records in initiation order and its
// per-model usage counters. The live dispatcher never reads the store;
// it exists for inspection after the fact.
package store
