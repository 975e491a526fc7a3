package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"hydrakit/internal/model"
)

const DefaultTopic = "kits.cart"

// ErrFlushTimeout means the line item was still queued when Flush gave up;
// the transaction is aborted rather than committed.
var ErrFlushTimeout = errors.New("cart message not delivered before flush timeout")

// producer is the transactional subset of *ck.Producer.
type producer interface {
	InitTransactions(ctx context.Context) error
	BeginTransaction() error
	Produce(msg *ck.Message, deliveryChan chan ck.Event) error
	Flush(timeoutMs int) int
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	Close()
}

// KafkaPublisher writes each line item in its own transaction, keyed by
// cart id, so a consumer reading committed messages never sees a partial
// checkout.
type KafkaPublisher struct {
	p     producer
	topic string
}

func NewKafkaPublisher(ctx context.Context, bootstrap, topic, txID string) (*KafkaPublisher, error) {
	p, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   txID,
	})
	if err != nil {
		return nil, fmt.Errorf("cart producer: %w", err)
	}
	return NewKafkaPublisherWith(ctx, p, topic)
}

// NewKafkaPublisherWith initialises transactions on p; used by tests.
func NewKafkaPublisherWith(ctx context.Context, p producer, topic string) (*KafkaPublisher, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	if err := p.InitTransactions(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("init tx: %w", err)
	}
	return &KafkaPublisher{p: p, topic: topic}, nil
}

func (k *KafkaPublisher) Publish(ctx context.Context, item model.CartLineItem) error {
	if err := Validate(item); err != nil {
		return err
	}
	val, err := json.Marshal(item)
	if err != nil {
		return err
	}
	if err := k.p.BeginTransaction(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	msg := &ck.Message{
		TopicPartition: ck.TopicPartition{Topic: &k.topic, Partition: ck.PartitionAny},
		Key:            []byte(item.CartID),
		Value:          val,
		Headers:        []ck.Header{{Key: "type", Value: []byte(item.Type)}},
	}
	if err := k.p.Produce(msg, nil); err != nil {
		_ = k.p.AbortTransaction(ctx)
		return fmt.Errorf("produce %s: %w", item.CartID, err)
	}
	if n := k.p.Flush(5000); n > 0 {
		_ = k.p.AbortTransaction(ctx)
		return fmt.Errorf("%s: %d outstanding: %w", item.CartID, n, ErrFlushTimeout)
	}
	if err := k.p.CommitTransaction(ctx); err != nil {
		_ = k.p.AbortTransaction(ctx)
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	k.p.Close()
	return nil
}
