// Package logs reads the jobdraft log file for `jobdraft logs`.
//
// Last returns the trailing lines with bounded memory, and Follow polls for
// appended lines until its context ends. Both accept a Filter so a single
// draft's lines can be isolated in either log format.
package logs
