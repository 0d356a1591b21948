// Package logging provides a minimal logging interface and adapters for dreamer.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that the agent loop, backends and tools use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - LogModelCall / LogToolCall helpers with consistent field names
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text", Output: os.Stderr})
//	d, err := agent.New(backend, func(o *agent.Options) { o.Logger = logger })
package logging
