// Package ratelimit tracks credential-level rate limiting across provider
// invocations.
//
// A Tracker is constructed once per process and injected into the invoker;
// tests build their own isolated instances. The tracker can write through to
// a Persister so one-shot CLI invocations honour a cooldown opened by an
// earlier process.
package ratelimit
