// Package preflight runs the environment checks behind `jobdraft check`.
//
// Directory checks confirm the data and log directories are usable, provider
// checks surface credential problems the registry found, and live checks send
// a tiny completion to each active provider so a bad key or endpoint shows up
// before the first real draft.
package preflight
