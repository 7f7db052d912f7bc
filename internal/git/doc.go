// Package git provides a wrapper around Git CLI commands used by repokeep.
// It answers the questions the workspace asks about a repository (dirty
// state, HEAD, tags, upstream distance, remotes, submodules) without
// depending on other internal packages.
package git
