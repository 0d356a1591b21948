// Package agent implements Dreamer, a single long-lived agent driven by a
// text-generation backend through the tagged message protocol.
//
// The loop has two states:
//
//   - Idle: the agent waits for the next inbound user message.
//   - Busy: the agent calls the backend on the current thread and dispatches
//     the tagged reply (thought, action).
//
// Every thread mutation is mirrored on the metrics flow. Actions naming a
// registered tool are executed in-process and their result is appended as an
// observation; actions naming anything else are forwarded to the host on the
// action flow.
//
// Usage:
//
//	agentSide, external := channels.Create()
//	d, err := agent.New(backend, func(o *agent.Options) {
//		o.Tools = []tool.Tool{myTool}
//	})
//	h := d.Run(ctx, agentSide)
//	_ = external.Inbound.Send("hello")
//	err = h.Wait()
//
// The loop and the helper goroutine running the backend call are the only
// goroutines a Dreamer starts.
package agent
