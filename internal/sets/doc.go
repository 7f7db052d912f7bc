// Package sets maintains named sets of repositories and evaluates set
// expressions over them.
//
// Persisted sets live as line oriented files in a sets directory, one
// repository per line. Saving a set writes a snapshot named after the day it
// was taken (<name>-YYYY-MM-DD); only the three most recent snapshots of a
// name are kept. Computed sets such as @dirty are derived from live
// repository state every time they are referenced.
package sets
