package shell

import (
	"context"

	"github.com/hupe1980/dreamer/tool"
)

// SendMessageName is the tool the agent uses to talk to the user.
const SendMessageName = "send_message"

type sendMessageArgs struct {
	Text string `json:"text" description:"The message shown to the user"`
}

// NewSendMessageTool returns a tool printing the agent's messages as
// "dreamer> text".
func NewSendMessageTool(p *Printer) tool.Tool {
	return tool.NewFunctionToolFromStruct(
		SendMessageName,
		"Sends a message to the user. This is the only way the user sees what you say.",
		sendMessageArgs{},
		func(_ context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			p.Printf("dreamer> %s", text)
			return "message delivered", nil
		},
	)
}
