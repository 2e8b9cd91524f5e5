package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rvigier/loadshift/core/logger"
	"github.com/rvigier/loadshift/core/model"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Topic      string `json:"topic"`
	QoS        byte   `json:"qos"`
	Retain     bool   `json:"retain"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`
}

// scheduleMessage is the wire format pushed to the shop-floor topic.
type scheduleMessage struct {
	RunID    string                `json:"run_id"`
	Approach string                `json:"approach"`
	EC       float64               `json:"ec"`
	PL       float64               `json:"pl"`
	Schedule []model.ScheduleEntry `json:"schedule"`
	SentAt   time.Time             `json:"sent_at"`
}

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// SchedulePublisher pushes finished schedules to an MQTT topic so downstream
// formatters and plant controllers can pick them up.
type SchedulePublisher struct {
	cli    pahoClient
	topic  string
	qos    byte
	retain bool
	log    logger.Logger
}

// NewSchedulePublisher connects to the broker.
func NewSchedulePublisher(cfg Config, log logger.Logger) (*SchedulePublisher, error) {
	opts, err := newClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &SchedulePublisher{cli: c, topic: cfg.Topic, qos: cfg.QoS, retain: cfg.Retain, log: log}, nil
}

// PublishSchedule sends the result's schedule as a JSON message.
func (p *SchedulePublisher) PublishSchedule(ctx context.Context, res *model.Result) error {
	msg := scheduleMessage{
		RunID:    uuid.NewString(),
		Approach: res.Approach,
		EC:       res.EC,
		PL:       res.PL,
		Schedule: res.Schedule,
		SentAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	token := p.cli.Publish(p.topic, p.qos, p.retain, payload)
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish schedule: %w", err)
	}
	p.log.Infof("published %s schedule (%d entries) to %s", res.Approach, len(res.Schedule), p.topic)
	return nil
}

// Close disconnects from the broker.
func (p *SchedulePublisher) Close() {
	p.cli.Disconnect(250)
}

func newClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if cfg.CABundle != "" {
			pem, err := os.ReadFile(cfg.CABundle)
			if err != nil {
				return nil, fmt.Errorf("read ca bundle: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("invalid ca bundle %s", cfg.CABundle)
			}
			tlsCfg.RootCAs = pool
		}
		if cfg.ClientCert != "" && cfg.ClientKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
			if err != nil {
				return nil, fmt.Errorf("load client certificate: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}
