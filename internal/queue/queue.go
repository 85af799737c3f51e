package queue

import "context"

// Queue topology. Classified driver replies arrive on ReplyQueue from the
// external response collector; escalation case events fan out on CaseQueue
// for ops tooling.
const (
	ReplyQueue    = "driver.replies"
	ReplyDLQ      = "dlq.driver.replies"
	CaseQueue     = "escalation.cases"
	dlxExchange   = "reminder.dlx"
	replyRouteKey = "driver.replies"
)

// Publisher publishes escalation case events.
type Publisher interface {
	Publish(ctx context.Context, queue string, event CaseEvent) error
	Close() error
}

// ReplyHandler handles one consumed driver reply.
type ReplyHandler func(ctx context.Context, msg ReplyMessage) error

// Consumer consumes classified driver replies.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler ReplyHandler) error
	Close() error
}
