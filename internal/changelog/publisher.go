package changelog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Publisher pushes committed change entries onto a Kafka topic so alerting
// consumers see changes without polling the log table. Entries are keyed by
// normalized name, keeping per-drug ordering within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	log    *slog.Logger
}

// NewPublisher connects to the brokers. Returns nil, nil when no brokers
// are configured; callers treat a nil publisher as "feed disabled".
func NewPublisher(brokers []string, topic string, log *slog.Logger) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Publisher{client: client, topic: topic, log: log}, nil
}

// Publish produces one record per entry and waits for acks. Called after
// the pipeline transaction commits, so a publish failure never loses the
// change itself; the caller just logs it.
func (p *Publisher) Publish(ctx context.Context, entries []*Entry) error {
	if p == nil || len(entries) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal change entry %s: %w", e.ID, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(e.NormalizedName),
			Value: payload,
		})
	}

	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("publish %d change entries: %w", len(records), err)
	}
	p.log.Debug("published change feed batch", "entries", len(records), "topic", p.topic)
	return nil
}

func (p *Publisher) Close() {
	if p != nil {
		p.client.Close()
	}
}
