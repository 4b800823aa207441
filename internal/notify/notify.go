// Package notify forwards alert lifecycle events to a RabbitMQ fanout
// exchange so other warehouse screens can follow along.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"conferencia/painel/internal/types"
)

const queueSize = 256

// Lifecycle is the set of event types that leave the process.
var Lifecycle = map[string]bool{
	"ALERT_TRIGGER": true,
	"PLAY_START":    true,
	"FINISH_ITEM":   true,
	"CRITICAL":      true,
	"CLEAR":         true,
	"RESET":         true,
}

// Channel is the slice of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       Channel
	conn     *amqp.Connection
	exchange string

	events chan types.Event
	done   chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// Dial connects, declares the fanout exchange and starts publishing.
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	p := &Publisher{
		ch:       ch,
		exchange: exchange,
		events:   make(chan types.Event, queueSize),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// Handle is a store subscriber. It only enqueues, so it never stalls the
// dispatcher.
func (p *Publisher) Handle(ev types.Event) {
	if !Lifecycle[ev.Type] {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped++
		log.Printf("[notify] queue full, dropped %s (%d total)", ev.Type, p.dropped)
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for ev := range p.events {
		if err := p.publish(ev); err != nil {
			log.Printf("[notify] publish %s: %v", ev.Type, err)
		}
	}
}

func (p *Publisher) publish(ev types.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, amqp.Publishing{
		MessageId:   ev.ID,
		Type:        ev.Type,
		Timestamp:   ev.Ts.UTC(),
		ContentType: "application/json",
		Body:        body,
	})
}

// Close drains queued events and closes the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
