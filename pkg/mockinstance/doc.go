// Package mockinstance implements the per-instance request-dispatch
// engine: expectations, the expectation matcher, the response strategy
// set, and the dispatcher that ties basic-auth gating, matching, strategy
// execution, and global-header merging together.
package mockinstance
