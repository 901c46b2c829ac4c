package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kermitt2/grobid-client-go/internal/types"
)

const (
	TypeItemResult = "item_result"
	TypeRunSummary = "run_summary"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer publishes item results and run summaries as JSON messages.
type Producer struct {
	mu        sync.Mutex
	channel   publisher
	queueName string
	timeout   time.Duration
}

// NewProducer declares queueName and its dead letter queue, then publishes
// to queueName through conn.
func NewProducer(conn *Connection, queueName string) (*Producer, error) {
	dlq := queueName + "_dlq"

	if err := conn.declareDurable(dlq, nil); err != nil {
		return nil, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	err := conn.declareDurable(queueName, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	log.Printf("✓ Result queues declared: %s, %s", queueName, dlq)

	return newProducer(conn.channel, queueName), nil
}

func newProducer(channel publisher, queueName string) *Producer {
	return &Producer{
		channel:   channel,
		queueName: queueName,
		timeout:   5 * time.Second,
	}
}

func (p *Producer) PublishResult(ctx context.Context, result *types.ItemResult) error {
	return p.publish(ctx, TypeItemResult, result)
}

func (p *Producer) PublishSummary(ctx context.Context, summary *types.RunSummary) error {
	return p.publish(ctx, TypeRunSummary, summary)
}

func (p *Producer) publish(ctx context.Context, messageType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", messageType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, "", p.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Type:         messageType,
		Timestamp:    time.Now(),
		Body:         data,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", messageType, err)
	}
	return nil
}
