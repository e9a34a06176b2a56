// Package llm contains the wire clients used to request a job posting from a
// chat-completion provider.
//
// Three transports are supported:
//   - ChatClient speaks the OpenRouter/OpenAI-compatible HTTP protocol directly,
//     including server-sent-event streaming.
//   - OpenAIClient uses the official openai-go SDK.
//   - GeminiClient uses the google.golang.org/genai SDK.
//
// Every client performs exactly one attempt per Complete call. Retrying and
// failover across providers belong to the invoker, which classifies the errors
// returned here: *StatusError for non-2xx responses (with any Retry-After
// hint), ErrMalformedResponse for 2xx bodies without usable content, and plain
// transport errors otherwise.
package llm
