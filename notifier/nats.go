package notifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// NatsNotifier publishes session lifecycle events as JSON. Publishing is fire and forget,
// failures are logged and never reach the caller.
type NatsNotifier struct {
	conn *nats.Conn
	pub  publisher
}

func Connect(url string) (*NatsNotifier, error) {
	opts := []nats.Option{
		nats.Name("drawit"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NatsNotifier{conn: nc, pub: nc}, nil
}

func (n *NatsNotifier) Notify(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to encode notification")
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish notification")
	}
}

// Close flushes pending notifications.
func (n *NatsNotifier) Close() {
	if n == nil || n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		log.Warn().Err(err).Msg("nats drain failed")
	}
}
