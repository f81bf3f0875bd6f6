package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/osm-area-store/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
	// ClaimTTL bounds how long a finished job blocks a redelivery of the same version.
	ClaimTTL time.Duration
}

func FromConfig(c config.KafkaCfg) Config {
	return Config{
		Brokers:             splitCSV(c.Brokers),
		Topic:               c.Topic,
		GroupID:             c.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    5 * time.Minute,
		InitialOffsetOldest: true,
		ClaimTTL:            7 * 24 * time.Hour,
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
