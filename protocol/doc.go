// Package protocol implements the tagged text format the Dreamer agent speaks
// with its backend. Every message is plain text that starts with a literal tag
// ([thought], [action], [observation], [notification]) followed by a newline
// and the free-form main content.
//
// The tags are kept inside the text on purpose: when a thread is flattened
// into a prompt each message is replayed verbatim, which teaches the backend
// to continue with a correctly tagged message of its own.
//
// Thoughts and actions are authored by the backend. Observations (tool
// results) and notifications (external events) are authored by the runtime
// and must never be emitted by the backend itself.
package protocol
