// Package entry defines the callable units the dispatcher invokes.
//
// Two variants share one contract. A Capability wraps a deterministic
// function and does not recurse. An Agent wraps an LLM-driven sub-agent:
// one Call runs one model turn, and every entry the model decides to
// invoke re-enters the dispatcher through the Caller handle, which is the
// recursion point that makes depth-bounding necessary.
//
// After its turn an Agent reconciles model-reported internal sub-calls
// against the shared trace using (name, depth) equality, so calls the
// dispatcher already recorded are not logged twice.
package entry
