package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url" validate:"required"`
		APIKey         string        `yaml:"api_key"`
		Symbol         string        `yaml:"symbol" validate:"required"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"feed"`
	Engine struct {
		CycleInterval     time.Duration `yaml:"cycle_interval" default:"2s"`
		TelemetryInterval time.Duration `yaml:"telemetry_interval" default:"10s"`
		CandleCapacity    int           `yaml:"candle_capacity" default:"500" validate:"gt=1"`
		TradeCapacity     int           `yaml:"trade_capacity" default:"1000" validate:"gt=1"`
	} `yaml:"engine"`
	Trading struct {
		Leverage              float64       `yaml:"leverage" default:"250" validate:"gt=0"`
		RiskCapPercent        float64       `yaml:"risk_cap_percent" default:"0.25" validate:"gt=0"`
		AIConfidenceThreshold float64       `yaml:"ai_confidence_threshold" default:"0.75" validate:"gte=0,lte=1"`
		MaxROILimit           float64       `yaml:"max_roi_limit" default:"0"`
		MonitorInterval       time.Duration `yaml:"monitor_interval" default:"1s"`
		DynamicExit           bool          `yaml:"dynamic_exit"`
		DryRun                bool          `yaml:"dry_run" default:"true"`
		DryRunBalance         float64       `yaml:"dry_run_balance" default:"10000"`
		ForcedStrategy        string        `yaml:"forced_strategy"`
	} `yaml:"trading"`
	Filters struct {
		TradeWindowStart  int           `yaml:"trade_window_start" default:"7" validate:"gte=0,lte=23"`
		TradeWindowEnd    int           `yaml:"trade_window_end" default:"22" validate:"gte=0,lte=23"`
		StaleAfter        time.Duration `yaml:"stale_after" default:"30s"`
		CompressionWindow int           `yaml:"compression_window" default:"3" validate:"gt=0"`
		CompressionTrap   float64       `yaml:"compression_trap_threshold" default:"0.8"`
		RetestBand        float64       `yaml:"retest_band" default:"0.005"`
		RetestWeak        float64       `yaml:"retest_weak_threshold" default:"0.3"`
		BreakoutStrong    float64       `yaml:"breakout_strong_threshold" default:"0.7"`
		SpoofBlockRate    float64       `yaml:"spoof_block_rate" default:"25"`
		LowVolumeRatio    float64       `yaml:"low_volume_ratio" default:"0.35"`
		ReversalZoneDist  float64       `yaml:"reversal_zone_distance" default:"0.01"`
	} `yaml:"filters"`
	Book struct {
		TopN              int     `yaml:"top_n" default:"20" validate:"gt=0"`
		WallMultiplier    float64 `yaml:"wall_multiplier" default:"5" validate:"gt=0"`
		SpoofDistance     float64 `yaml:"spoof_distance" default:"0.5"`
		SpoofThinTrigger  float64 `yaml:"spoof_thin_trigger" default:"5"`
		WickBodyMultiple  float64 `yaml:"wick_body_multiple" default:"1.5"`
		TrapRangeMultiple float64 `yaml:"trap_range_multiple" default:"2"`
	} `yaml:"book"`
	Forecast struct {
		Window           int     `yaml:"window" default:"10" validate:"gt=2"`
		WeightEarliness  float64 `yaml:"weight_earliness" default:"0.35"`
		WeightDivergence float64 `yaml:"weight_divergence" default:"0.25"`
		WeightImbalance  float64 `yaml:"weight_imbalance" default:"0.2"`
		WeightProximity  float64 `yaml:"weight_proximity" default:"0.2"`
	} `yaml:"forecast"`
	Risk struct {
		WeightForecast float64 `yaml:"weight_forecast" default:"0.5"`
		WeightHistory  float64 `yaml:"weight_history" default:"0.3"`
		WeightATR      float64 `yaml:"weight_atr" default:"0.2"`
		ATRMultiple    float64 `yaml:"atr_multiple" default:"2.5"`
		ATRCapMultiple float64 `yaml:"atr_cap_multiple" default:"4"`
		AbsoluteCap    float64 `yaml:"absolute_cap" default:"50"`
		Budget         float64 `yaml:"budget" default:"10" validate:"gt=0"`
	} `yaml:"risk"`
	Adjudicator struct {
		URL      string        `yaml:"url" validate:"required"`
		APIKey   string        `yaml:"api_key"`
		Timeout  time.Duration `yaml:"timeout" default:"15s"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"50s"`
		Redis    struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"adjudicator"`
	Gateway struct {
		URL     string        `yaml:"url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"gateway"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"trading.decisions"`
		LogTopic     string   `yaml:"log_topic" default:"trading.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async" default:"true"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradingcore"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file, applies defaults for
// omitted fields and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides credentials and
// endpoints with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Feed.Symbol = v
	}
	if v := os.Getenv("ADJUDICATOR_URL"); v != "" {
		c.Adjudicator.URL = v
	}
	if v := os.Getenv("ADJUDICATOR_API_KEY"); v != "" {
		c.Adjudicator.APIKey = v
	}
	if v := os.Getenv("GATEWAY_URL"); v != "" {
		c.Gateway.URL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		c.Gateway.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trading.DryRun = b
		}
	}

	return c, nil
}

// Validate checks struct tags plus cross-field rules the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if !c.Trading.DryRun && c.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required when trading.dry_run is false")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.enabled is true")
	}
	if w := c.Risk.WeightForecast + c.Risk.WeightHistory + c.Risk.WeightATR; w <= 0 {
		return fmt.Errorf("risk blend weights must sum to a positive value, got %v", w)
	}
	return nil
}
