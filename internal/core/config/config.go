package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type KafkaCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	Metrics    bool
	RedisAddr  string
	H3Res      int
	EntityTTL  time.Duration

	// PolygonRulesPath overrides the embedded polygon feature rules when set.
	PolygonRulesPath         string
	CheckGeometries          bool
	BufferQuadSegs           int
	FootprintWidthIsDiameter bool
	WayCacheSize             int
	ZoneCacheSize            int
	AvoidFootways            bool

	Kafka KafkaCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		Metrics:    getbool("METRICS_ENABLED", true),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		H3Res:      res,
		EntityTTL:  getduration("ENTITY_TTL", 0),

		PolygonRulesPath:         getenv("POLYGON_RULES_PATH", ""),
		CheckGeometries:          getbool("CHECK_GEOMETRIES", false),
		BufferQuadSegs:           positive(getint("BUFFER_QUAD_SEGS", 8), 8),
		FootprintWidthIsDiameter: getbool("FOOTPRINT_WIDTH_IS_DIAMETER", false),
		WayCacheSize:             positive(getint("WAY_CACHE_SIZE", 1<<16), 1<<16),
		ZoneCacheSize:            positive(getint("ZONE_CACHE_SIZE", 16), 16),
		AvoidFootways:            getbool("AVOID_FOOTWAYS", true),

		Kafka: KafkaCfg{
			Enabled: getbool("KAFKA_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "osm-import-jobs"),
			GroupID: getenv("KAFKA_GROUP_ID", "osm-importer"),
		},
	}
}

func positive(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
