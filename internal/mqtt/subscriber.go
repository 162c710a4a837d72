// Package mqtt feeds bin telemetry published on an MQTT broker into the
// ingestion pipeline.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/telemetry"
)

const disconnectQuiesceMs = 250

// Ingester is the pipeline entry point.
type Ingester interface {
	Ingest(ctx context.Context, source, binID string, sample models.Telemetry) (*telemetry.Result, error)
}

type Subscriber struct {
	cfg      config.MQTTConfig
	ingester Ingester
	recorder telemetry.Recorder
	log      zerolog.Logger
}

// NewSubscriber builds a subscriber. recorder may be nil.
func NewSubscriber(cfg config.MQTTConfig, ingester Ingester, recorder telemetry.Recorder, log zerolog.Logger) *Subscriber {
	if cfg.MessageTimeout <= 0 {
		cfg.MessageTimeout = 5 * time.Second
	}
	return &Subscriber{
		cfg:      cfg,
		ingester: ingester,
		recorder: recorder,
		log:      log.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger(),
	}
}

// BinIDFromTopic returns the second path segment of a telemetry topic,
// e.g. "bins/<id>/telemetry".
func BinIDFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return "", apperror.Validation("topic %q has no bin id segment", topic)
	}
	id := parts[1]
	if id == "" || id == "+" || id == "#" {
		return "", apperror.Validation("topic %q has an empty bin id", topic)
	}
	return id, nil
}

// Run connects to the broker and processes messages until ctx is cancelled.
// Subscriptions are renewed on every reconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	if len(s.cfg.Topics) == 0 {
		return errors.New("mqtt: no topics configured")
	}

	opts := pmqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID + "-" + uuid.NewString()[:8]).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ pmqtt.Client, err error) {
			s.log.Warn().Err(err).Msg("connection lost")
		}).
		SetOnConnectHandler(func(c pmqtt.Client) {
			s.log.Info().Msg("connected to mqtt broker")
			s.subscribe(ctx, c)
		})
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	client := pmqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %w", err)
		}
	case <-ctx.Done():
		client.Disconnect(disconnectQuiesceMs)
		return nil
	}

	<-ctx.Done()
	client.Disconnect(disconnectQuiesceMs)
	s.log.Info().Msg("disconnected from mqtt broker")
	return nil
}

func (s *Subscriber) subscribe(ctx context.Context, c pmqtt.Client) {
	filters := make(map[string]byte, len(s.cfg.Topics))
	for _, t := range s.cfg.Topics {
		filters[t] = s.cfg.QoS
	}
	token := c.SubscribeMultiple(filters, func(_ pmqtt.Client, msg pmqtt.Message) {
		_ = s.handle(ctx, msg.Topic(), msg.Payload())
	})
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		s.log.Error().Err(token.Error()).Strs("topics", s.cfg.Topics).Msg("subscribe failed")
		return
	}
	s.log.Info().Strs("topics", s.cfg.Topics).Msg("subscribed")
}

// handle decodes one message and runs it through the pipeline. Failures are
// logged and the message is dropped.
func (s *Subscriber) handle(ctx context.Context, topic string, payload []byte) error {
	binID, err := BinIDFromTopic(topic)
	if err != nil {
		s.drop(topic, err)
		return err
	}

	var sample models.Telemetry
	if err := json.Unmarshal(payload, &sample); err != nil {
		err = apperror.Validation("decode payload: %v", err)
		s.drop(topic, err)
		return err
	}

	msgCtx, cancel := context.WithTimeout(ctx, s.cfg.MessageTimeout)
	defer cancel()

	res, err := s.ingester.Ingest(msgCtx, telemetry.SourceMQTT, binID, sample)
	if err != nil {
		ev := s.log.Error()
		if errors.Is(err, apperror.ErrNotFound) {
			ev = s.log.Warn()
		}
		ev.Err(err).Str("topic", topic).Str("bin_id", binID).Msg("telemetry dropped")
		return err
	}

	s.log.Debug().Str("bin_id", binID).Int("fill_level", sample.FillLevel).Int("alerts", len(res.Alerts)).Msg("telemetry ingested")
	return nil
}

func (s *Subscriber) drop(topic string, err error) {
	s.log.Warn().Err(err).Str("topic", topic).Msg("telemetry dropped")
	if s.recorder != nil {
		s.recorder.SampleIngested(telemetry.SourceMQTT, telemetry.OutcomeInvalid, 0)
	}
}
