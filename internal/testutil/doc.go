// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing prompts the way the agent thread flattens
// them. They are not intended for production usage.
package testutil
