// Package daemon runs the long-lived jobdraft process.
//
// It wires configuration, draft storage, the provider stack, and the
// generation orchestrator into a single lifecycle with flock-based locking to
// prevent multiple instances. On start it fails drafts left processing by a
// previous process. Generations triggered over the HTTP API run in the
// background and are cancelled when the daemon stops.
//
// The HTTP API is routed with chi. Draft progress can be followed over a
// websocket fed by the in-process event bus.
package daemon
