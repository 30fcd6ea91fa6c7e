package relay

// IncomingMessage is the pipeline input, as handed over by the webhook.
type IncomingMessage struct {
	SenderName string `json:"userName"`
	Text       string `json:"message"`
	ChatID     int64  `json:"chatId"`
}

// AgentReply is produced by the Responder and consumed by the Deliverer.
// Text is never empty.
type AgentReply struct {
	Text   string `json:"agentResponse"`
	ChatID int64  `json:"chatId"`
}

// DeliveryResult is the terminal output of the pipeline.
type DeliveryResult struct {
	Success   bool   `json:"success"`
	MessageID *int64 `json:"messageId,omitempty"`
}
