// Package eventlog is the side channel for operational events: provider
// failures, provider exhaustion, fetch problems, and draft status changes.
//
// Producers call Sink.Log and never see an error; a sink that cannot record an
// event reports the problem through its own logger. Sinks compose with Multi.
// The StoreSink persists events in the draft database, SlogSink mirrors them
// into the structured log, and Bus fans them out to in-process subscribers
// such as the websocket watch endpoint.
package eventlog
