// Package model defines the provider-agnostic text generation capability the
// Dreamer agent depends on.
//
// Core goals:
//   - Keep the backend contract minimal: a prompt of role-tagged turns in,
//     one string out
//   - Offer an optional streaming variant whose chunks are buffered by the
//     caller (Collect) before the text is interpreted
//   - Facilitate deterministic tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic, Ollama) live in sub-packages and implement
// TextModel and, where supported, TextStreamModel, so the agent loop stays
// decoupled from vendor SDKs.
package model
