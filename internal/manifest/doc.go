// Package manifest handles parsing and writing of workspace.yaml files and
// of the optional repokeep.toml file found in each repository.
package manifest
