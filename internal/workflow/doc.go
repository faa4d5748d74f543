// Package workflow implements a persistent, permission-gated state-machine
// runtime for business processes attached to user-owned documents.
//
// The package is organized around two parallel trees. The spec tree
// (WorkflowSpec -> CourseSpec -> NodeSpec / TransitionSpec) is the authored
// graph template; it is validated statically and installed into a Store. The
// instance tree (WorkflowInstance -> CourseInstance -> NodeInstance) is a
// running realization of a spec bound to one concrete document. The Engine
// advances course instances through the graph, spawning parallel branch
// courses at SPLIT nodes and terminating them recursively on cancel or join.
package workflow
