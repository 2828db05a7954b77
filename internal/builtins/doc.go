// Package builtins provides the default capability entries available to
// every registry: small deterministic tools for arithmetic, strings, and
// time, tagged for the capability-rule table.
package builtins
