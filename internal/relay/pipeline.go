package relay

import (
	"context"

	logx "github.com/sherlock-relay/server/pkg/logger"
)

// ReplyGenerator is the first pipeline stage.
type ReplyGenerator interface {
	Respond(ctx context.Context, in IncomingMessage) (AgentReply, error)
}

// ReplySender is the second pipeline stage.
type ReplySender interface {
	Deliver(ctx context.Context, reply AgentReply) (DeliveryResult, error)
}

// Pipeline runs Responder then Deliverer for one incoming message. It holds no
// per-chat state, so Run may be called concurrently for different chats.
type Pipeline struct {
	responder ReplyGenerator
	deliverer ReplySender
}

func NewPipeline(responder ReplyGenerator, deliverer ReplySender) *Pipeline {
	return &Pipeline{responder: responder, deliverer: deliverer}
}

// Run generates a reply and delivers it. Any failure aborts the run; there is
// no partial result.
func (p *Pipeline) Run(ctx context.Context, in IncomingMessage) (DeliveryResult, error) {
	reply, err := p.responder.Respond(ctx, in)
	if err != nil {
		return DeliveryResult{}, err
	}

	result, err := p.deliverer.Deliver(ctx, reply)
	if err != nil {
		logx.Error().Err(err).Int64("chat_id", in.ChatID).Msg("Delivery failed")
		return DeliveryResult{}, err
	}
	return result, nil
}
