package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	teamdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/team/domain"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewJSONMessage encodes payload into a message tagged with correlationID.
func NewJSONMessage(ctx context.Context, payload any, correlationID string) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(ctx)
	if correlationID != "" {
		middleware.SetCorrelationID(correlationID, msg)
	}
	return msg, nil
}

// RunCompletedPublisher announces committed ingestion runs.
type RunCompletedPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewRunCompletedPublisher wraps a watermill publisher.
func NewRunCompletedPublisher(publisher message.Publisher, logger *slog.Logger) *RunCompletedPublisher {
	return &RunCompletedPublisher{publisher: publisher, logger: logger}
}

// PublishRunCompleted sends summary on TopicRunCompleted, correlated by run ID.
func (p *RunCompletedPublisher) PublishRunCompleted(ctx context.Context, summary ingestdomain.RunSummary) error {
	msg, err := NewJSONMessage(ctx, summary, summary.RunID)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(TopicRunCompleted, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", TopicRunCompleted, err)
	}
	p.logger.DebugContext(ctx, "Published run completed",
		slog.String("run_id", summary.RunID),
		slog.String("message_id", msg.UUID),
	)
	return nil
}

// StandingsChangedPublisher announces ownership and affiliation changes.
type StandingsChangedPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewStandingsChangedPublisher wraps a watermill publisher.
func NewStandingsChangedPublisher(publisher message.Publisher, logger *slog.Logger) *StandingsChangedPublisher {
	return &StandingsChangedPublisher{publisher: publisher, logger: logger}
}

// PublishStandingsChanged sends event on TopicStandingsChanged.
func (p *StandingsChangedPublisher) PublishStandingsChanged(ctx context.Context, event teamdomain.StandingsChanged) error {
	msg, err := NewJSONMessage(ctx, event, "")
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(TopicStandingsChanged, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", TopicStandingsChanged, err)
	}
	p.logger.DebugContext(ctx, "Published standings changed",
		slog.String("reason", event.Reason),
		slog.String("message_id", msg.UUID),
	)
	return nil
}

// HandleJSON adapts a typed handler to watermill. Payloads that do not decode
// are logged and acked, since redelivery cannot fix them.
func HandleJSON[T any](logger *slog.Logger, handler func(ctx context.Context, payload *T) error) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := msg.Context()
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				slog.String("message_id", msg.UUID),
				slog.String("topic", message.SubscribeTopicFromCtx(ctx)),
				slog.Any("error", err),
			)
			return nil
		}
		return handler(ctx, &payload)
	}
}

// TraceHandler starts a consumer span per message and stores it in the message context.
func TraceHandler(tracer trace.Tracer) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			ctx := msg.Context()
			ctx, span := tracer.Start(ctx, message.HandlerNameFromCtx(ctx),
				trace.WithSpanKind(trace.SpanKindConsumer),
				trace.WithAttributes(
					attribute.String("messaging.destination", message.SubscribeTopicFromCtx(ctx)),
					attribute.String("messaging.message_id", msg.UUID),
					attribute.String("correlation_id", middleware.MessageCorrelationID(msg)),
				),
			)
			defer span.End()

			msg.SetContext(ctx)
			produced, err := h(msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return produced, err
		}
	}
}
