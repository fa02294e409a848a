package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/croissantlabs/ticketflow/internal/payment/domain"
	"github.com/croissantlabs/ticketflow/pkg/metrics"
	"github.com/croissantlabs/ticketflow/pkg/reqreply"
)

// Request topics of the two downstream services; each replies on its own
// reply topic, correlated by the correlation_id header.
const (
	TopicCardCheck      = "create.payment"
	TopicCardCheckReply = "create.payment.reply"
	TopicRegister       = "register.payment"
	TopicRegisterReply  = "register.payment.reply"
)

// client binds one gateway to one downstream service's topic pair. Connect
// must run once, at service start, before the first call.
type client struct {
	name       string
	topic      string
	replyTopic string
	group      string
	brokers    []string
	log        *slog.Logger
	gateway    *reqreply.Gateway
	metrics    *metrics.Metrics

	connectOnce sync.Once
}

func newClient(log *slog.Logger, name string, brokers []string, topic, replyTopic, group string, pub reqreply.Publisher, m *metrics.Metrics, timeout time.Duration) *client {
	return &client{
		name:       name,
		topic:      topic,
		replyTopic: replyTopic,
		group:      group,
		brokers:    brokers,
		log:        log,
		gateway:    reqreply.NewGateway(log, pub, timeout),
		metrics:    m,
	}
}

// Connect starts the reply subscription. It is a one-time setup step;
// repeated calls are no-ops. The consumer group gets a per-instance suffix:
// replies must reach the instance holding the waiter, so instances cannot
// share a group on the reply topic.
func (c *client) Connect(ctx context.Context) {
	c.connectOnce.Do(func() {
		group := fmt.Sprintf("%s-%s-%s", c.group, c.name, uuid.NewString()[:8])
		consumer := NewReplyConsumer(c.log, c.brokers, c.replyTopic, group, c.gateway, c.metrics)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Error("reply consumer stopped", "service", c.name, "err", err)
			}
		}()
	})
}

func (c *client) call(ctx context.Context, payload []byte) ([]byte, error) {
	start := time.Now()
	reply, err := c.gateway.Request(ctx, c.topic, payload)
	c.metrics.DownstreamLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	if errors.Is(err, reqreply.ErrTimeout) {
		c.metrics.DownstreamTimeouts.WithLabelValues(c.name).Inc()
	}
	return reply, err
}

// CardCheckerClient is the typed proxy for the card validation service.
type CardCheckerClient struct {
	*client
}

func NewCardCheckerClient(log *slog.Logger, brokers []string, group string, pub reqreply.Publisher, m *metrics.Metrics, timeout time.Duration) *CardCheckerClient {
	return &CardCheckerClient{
		client: newClient(log, "card_checker", brokers, TopicCardCheck, TopicCardCheckReply, group, pub, m, timeout),
	}
}

func (c *CardCheckerClient) Check(ctx context.Context, req domain.ChargeRequest) (domain.CardCheckResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.CardCheckResult{}, err
	}

	reply, err := c.call(ctx, payload)
	if err != nil {
		return domain.CardCheckResult{}, err
	}

	var res domain.CardCheckResult
	if err := json.Unmarshal(reply, &res); err != nil {
		return domain.CardCheckResult{}, err
	}
	return res, nil
}

// RegistryClient is the typed proxy for the payment registry service, the
// sole writer of Payment records.
type RegistryClient struct {
	*client
}

func NewRegistryClient(log *slog.Logger, brokers []string, group string, pub reqreply.Publisher, m *metrics.Metrics, timeout time.Duration) *RegistryClient {
	return &RegistryClient{
		client: newClient(log, "payment_registry", brokers, TopicRegister, TopicRegisterReply, group, pub, m, timeout),
	}
}

func (c *RegistryClient) Register(ctx context.Context, req domain.RegistryRequest) (domain.RegistryResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.RegistryResult{}, err
	}

	reply, err := c.call(ctx, payload)
	if err != nil {
		return domain.RegistryResult{}, err
	}

	// The registry can acknowledge with an empty body; the orchestrator
	// treats the missing status as a recording failure.
	if len(reply) == 0 {
		return domain.RegistryResult{}, nil
	}

	var res domain.RegistryResult
	if err := json.Unmarshal(reply, &res); err != nil {
		return domain.RegistryResult{}, err
	}
	return res, nil
}
