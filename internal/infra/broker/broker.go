// Package broker builds the Watermill Pub/Sub used for pipeline events: an in-process
// gochannel for single-node runs and tests, or NATS JetStream for deployments.
package broker

import (
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/logging"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	DriverGoChannel = "gochannel"
	DriverNATS      = "nats"
)

// Config selects and tunes the broker driver.
type Config struct {
	Driver         string
	NATSURL        string
	QueueGroup     string
	DurableName    string
	MaxReconnects  int
	ReconnectWait  time.Duration
	AckWaitTimeout time.Duration
	MaxDeliver     int
	CloseTimeout   time.Duration
	BufferSize     int64
}

// PubSub pairs a publisher and subscriber over the same transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// New opens the configured driver. An empty driver selects gochannel.
func New(cfg Config, logger zerolog.Logger) (*PubSub, error) {
	wmLogger := logging.NewWatermillAdapter(logger.With().Str("component", "broker").Logger())

	switch cfg.Driver {
	case "", DriverGoChannel:
		// Not persistent: messages published with no subscriber are dropped rather than
		// kept for the life of the process. Subscribe before publishing.
		bus := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.BufferSize,
		}, wmLogger)
		return &PubSub{Publisher: bus, Subscriber: bus}, nil
	case DriverNATS:
		return newNATS(cfg, wmLogger)
	default:
		return nil, fmt.Errorf("unknown broker driver %q", cfg.Driver)
	}
}

func newNATS(cfg Config, logger watermill.LoggerAdapter) (*PubSub, error) {
	if cfg.NATSURL == "" {
		return nil, errors.New("broker.nats_url not configured")
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.AckWaitTimeout <= 0 {
		cfg.AckWaitTimeout = 30 * time.Second
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = 5
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			// Sends the Watermill UUID as Nats-Msg-Id, so JetStream drops republished events.
			TrackMsgId: true,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.NATSURL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: cfg.DurableName,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverAll(),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	return &PubSub{Publisher: pub, Subscriber: sub}, nil
}

// Close releases both sides. gochannel shares one value for both, which tolerates a
// second Close.
func (p *PubSub) Close() error {
	return errors.Join(p.Publisher.Close(), p.Subscriber.Close())
}
