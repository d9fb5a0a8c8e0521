package game

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds the raffle game configuration: probability tables, reel
// constants, history bound and multi-draw count.
type Config struct {
	ClassName       string       `mapstructure:"class_name" json:"className"`
	HistoryCapacity int          `mapstructure:"history_capacity" json:"historyCapacity"`
	MultiDrawCount  int          `mapstructure:"multi_draw_count" json:"multiDrawCount"`
	Rarities        []TierWeight `mapstructure:"rarities" json:"rarities"`
	Wears           []WearWeight `mapstructure:"wears" json:"wears"`
	Reel            ReelConfig   `mapstructure:"reel" json:"reel"`
}

// DefaultConfig returns the stock raffle configuration.
func DefaultConfig() *Config {
	return &Config{
		HistoryCapacity: DefaultHistoryCapacity,
		MultiDrawCount:  DefaultMultiDrawCount,
		Rarities:        DefaultTierWeights(),
		Wears:           DefaultWearWeights(),
		Reel:            DefaultReelConfig(),
	}
}

// setDefaults fills in missing sections so a partial file is usable.
func (c *Config) setDefaults() {
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	if c.MultiDrawCount <= 0 {
		c.MultiDrawCount = DefaultMultiDrawCount
	}
	if len(c.Rarities) == 0 {
		c.Rarities = DefaultTierWeights()
	}
	if len(c.Wears) == 0 {
		c.Wears = DefaultWearWeights()
	}
	c.Reel.normalize()
}

// LoadConfig loads raffle configuration from a YAML file. Probabilities
// decode into decimal.Decimal via a mapstructure hook so the startup sum
// check is exact.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if err := LoadConfigInto(configPath, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// LoadConfigInto loads config into the provided struct (out must be a
// pointer).
func LoadConfigInto(configPath string, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(out, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalDecodeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

// decimalDecodeHook converts YAML numbers and strings into
// decimal.Decimal fields.
func decimalDecodeHook() mapstructure.DecodeHookFuncType {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch v := data.(type) {
		case float64:
			return decimal.NewFromFloat(v), nil
		case float32:
			return decimal.NewFromFloat32(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case int64:
			return decimal.NewFromInt(v), nil
		case string:
			return decimal.NewFromString(v)
		default:
			return data, nil
		}
	}
}
