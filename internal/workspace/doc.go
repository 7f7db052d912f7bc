// Package workspace composes the repokeep engines for one workspace root.
//
// A Workspace owns the discovered repositories, the repo set engine and the
// change stager. It offers two run shapes: Stage runs the producers over a
// set of repositories and applies or persists their proposals, and
// ApplyPending applies what an earlier Stage persisted.
package workspace
