package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/models"
)

// AlertSubject returns the subject alerts for a bin are published on.
func AlertSubject(prefix, binID string) string {
	return fmt.Sprintf("%s.%s", prefix, binID)
}

type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher publishes alert events to NATS core subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	pub    publisher
	prefix string
}

// ConnectNATS dials the configured server and keeps reconnecting forever.
func ConnectNATS(cfg config.NATSConfig, log zerolog.Logger) (*NATSPublisher, error) {
	log = log.With().Str("component", "nats").Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("smartbin-api"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("nats error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to nats")
	return &NATSPublisher{conn: nc, pub: nc, prefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) Notify(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(NewAlertEvent(alert))
	if err != nil {
		return fmt.Errorf("encode alert event: %w", err)
	}
	if err := p.pub.Publish(AlertSubject(p.prefix, alert.BinID), data); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.ID, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
