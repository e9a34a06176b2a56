// Package invoker runs a generation request against the configured providers
// in priority order until one of them produces usable text.
//
// Before any provider is contacted the shared rate-limit tracker is consulted;
// while a cooldown is open Invoke fails fast with *CooldownError. Each provider
// gets one attempt bounded by the attempt timeout. Failures are classified as
// rate_limited, server, malformed, or client and recorded as provider_failure
// events; only rate_limited failures update the tracker. When every provider
// fails the caller receives *ExhaustedError, whose Resolution tells the user
// whether waiting will help.
//
// Cancelling the caller's context aborts the loop immediately and is never
// reported as a provider failure.
package invoker
