package mqtt

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"teslacam/config"
	"teslacam/logger"
)

// Client publishes library notifications to an MQTT broker.
type Client struct {
	client mqtt.Client
	config config.MQTTConfig
}

func NewClient(cfg config.MQTTConfig) *Client {
	log := logger.WithComponent("mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Infof("Connected to MQTT broker at %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.WithError(err).Warn("Lost connection to MQTT broker")
	})

	return &Client{
		client: mqtt.NewClient(opts),
		config: cfg,
	}
}

func (c *Client) Connect() error {
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Topic is the configured notification topic.
func (c *Client) Topic() string {
	return c.config.Topic
}

func (c *Client) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := c.client.Publish(topic, 0, true, data)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}
