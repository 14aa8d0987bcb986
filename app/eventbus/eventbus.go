package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// TopicRunCompleted carries a RunSummary after an ingestion run commits.
	TopicRunCompleted = "ingest.run.completed.v1"
	// TopicStandingsChanged carries a StandingsChanged after ownership or
	// affiliation changes commit.
	TopicStandingsChanged = "ingest.standings.changed.v1"

	streamName    = "INGEST"
	streamSubject = "ingest.>"
	consumerGroup = "segment-ctf"
)

// Bus pairs a publisher and subscriber over NATS JetStream, or over an
// in-process channel when no NATS URL is configured.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	conn   *nc.Conn
	logger *slog.Logger
}

// New connects to NATS and provisions the ingest stream. An empty URL returns
// an in-process bus.
func New(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*Bus, error) {
	if cfg.URL == "" {
		logger.Info("NATS URL not configured, using in-process event bus")
		return NewInProcess(logger), nil
	}

	options := []nc.Option{
		nc.Name(consumerGroup),
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
	}
	if cfg.NKeySeed != "" {
		opt, err := nkeyOption(cfg.NKeySeed)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	conn, err := nc.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := ensureStream(ctx, conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	jsConfig := nats.JetStreamConfig{
		AutoProvision: false,
		DurablePrefix: consumerGroup,
		SubscribeOptions: []nc.SubOpt{
			nc.DeliverNew(),
			nc.AckExplicit(),
		},
	}

	publisher, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: options,
		Marshaler:   marshaler,
		JetStream:   jsConfig,
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:              cfg.URL,
		NatsOptions:      options,
		Unmarshaler:      marshaler,
		QueueGroupPrefix: consumerGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		JetStream:        jsConfig,
	}, wmLogger)
	if err != nil {
		publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	logger.Info("Connected to NATS event bus", slog.String("url", cfg.URL))
	return &Bus{
		Publisher:  publisher,
		Subscriber: subscriber,
		conn:       conn,
		logger:     logger,
	}, nil
}

// NewInProcess returns a bus backed by a Go channel pub/sub.
func NewInProcess(logger *slog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return &Bus{
		Publisher:  pubsub,
		Subscriber: pubsub,
		logger:     logger,
	}
}

// Close shuts down the publisher, subscriber and NATS connection.
func (b *Bus) Close() error {
	var errs []error
	if err := b.Subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close subscriber: %w", err))
	}
	if any(b.Publisher) != any(b.Subscriber) {
		if err := b.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	return errors.Join(errs...)
}

func ensureStream(ctx context.Context, conn *nc.Conn, logger *slog.Logger) error {
	js, err := jetstream.New(conn)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{streamSubject},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to provision stream %s: %w", streamName, err)
	}

	logger.Info("JetStream stream ready",
		slog.String("stream", stream.CachedInfo().Config.Name),
		slog.Any("subjects", stream.CachedInfo().Config.Subjects),
	)
	return nil
}
