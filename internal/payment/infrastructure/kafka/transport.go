package kafka

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/croissantlabs/ticketflow/pkg/metrics"
	"github.com/croissantlabs/ticketflow/pkg/reqreply"
	"github.com/croissantlabs/ticketflow/pkg/tracing"
)

// HeaderCorrelationID carries the token that matches a reply to its request.
const HeaderCorrelationID = "correlation_id"

type Writer struct {
	*kafka.Writer
}

func NewWriter(brokers []string) *Writer {
	return &Writer{
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Publish satisfies reqreply.Publisher. The correlation id doubles as the
// message key so one request's messages stay on one partition.
func (w *Writer) Publish(ctx context.Context, topic, correlationID string, payload []byte) error {
	headers := []kafka.Header{{Key: HeaderCorrelationID, Value: []byte(correlationID)}}
	headers = tracing.InjectKafkaHeaders(ctx, headers)

	return w.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(correlationID),
		Value:   payload,
		Headers: headers,
	})
}

// ReplyConsumer pumps one downstream service's reply topic into its
// gateway. Replies with no matching waiter are dropped; a broken fetch
// fails every pending request so callers do not wait out their deadline.
type ReplyConsumer struct {
	log     *slog.Logger
	reader  *kafka.Reader
	gateway *reqreply.Gateway
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewReplyConsumer(log *slog.Logger, brokers []string, topic, group string, gw *reqreply.Gateway, m *metrics.Metrics) *ReplyConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return &ReplyConsumer{
		log:     log,
		reader:  r,
		gateway: gw,
		metrics: m,
		tracer:  otel.Tracer("reply-consumer"),
	}
}

func (c *ReplyConsumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			c.gateway.FailAll(err)
			return err
		}

		id := headerValue(msg.Headers, HeaderCorrelationID)
		if id == "" {
			c.log.Warn("reply without correlation id skipped", "topic", msg.Topic, "offset", msg.Offset)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		_, span := c.tracer.Start(msgCtx, "DeliverReply")

		if !c.gateway.Deliver(id, msg.Value) {
			c.metrics.DroppedReplies.Inc()
			c.log.Debug("unmatched reply dropped", "topic", msg.Topic, "correlation_id", id)
		}
		span.End()
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
