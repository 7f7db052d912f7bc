// Package producer defines the checks that propose changes to repositories.
//
// Each Producer inspects one repository and returns change proposals plus
// diagnostics. The set of producers is closed: Builtins returns every known
// producer and Lookup selects one by name. Run executes producers
// concurrently across repositories and feeds their proposals into a staging
// store.
package producer
