package results

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/versant-prep/backend/internal/config"
)

const EventEnrichmentRequested = "enrichment.requested"

// EnrichmentRequest asks the enricher to grade a stored result.
type EnrichmentRequest struct {
	ResultID int64 `json:"result_id"`
	UserID   int64 `json:"user_id"`
}

func newEnrichmentMessage(req EnrichmentRequest) (*message.Message, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal enrichment request: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("event_type", EventEnrichmentRequested)
	msg.Metadata.Set("result_id", fmt.Sprint(req.ResultID))
	return msg, nil
}

func decodeEnrichmentMessage(msg *message.Message) (EnrichmentRequest, error) {
	var req EnrichmentRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return req, fmt.Errorf("decode enrichment request %s: %w", msg.UUID, err)
	}
	return req, nil
}

// PubSub bundles the publisher and subscriber for enrichment requests.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

func (p *PubSub) Close() error {
	pubErr := p.Publisher.Close()
	if err := p.Subscriber.Close(); err != nil {
		return err
	}
	return pubErr
}

// NewPubSub returns a Kafka pub/sub when brokers are configured and an
// in-process channel otherwise.
func NewPubSub(cfg config.KafkaConfig, logger watermill.LoggerAdapter) (*PubSub, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	if len(cfg.Brokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return &PubSub{Publisher: ch, Subscriber: ch}, nil
	}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.Brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.Brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: kafka.DefaultSaramaSubscriberConfig(),
		ConsumerGroup:         cfg.ConsumerGroup,
	}, logger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create Kafka subscriber: %w", err)
	}

	return &PubSub{Publisher: publisher, Subscriber: subscriber}, nil
}
