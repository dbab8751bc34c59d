// Ininicializing common application configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const (
	ModelIDMVTON = "idm_vton"
	ModelOOTD    = "ootd"
	ModelCatVTON = "catvton"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Replicate ReplicateConfig `mapstructure:"replicate"`
	Images    ImageConfig     `mapstructure:"images"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         string        `mapstructure:"port" validate:"required,numeric"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Idle_timeout time.Duration `mapstructure:"idle_timeout"`
	Mode         string        `mapstructure:"mode"`
	Debug        bool          `mapstructure:"debug"`
}

type ReplicateConfig struct {
	APIToken     string       `mapstructure:"api_token"`
	DefaultModel string       `mapstructure:"default_model" validate:"oneof=idm_vton ootd catvton"`
	Models       ModelsConfig `mapstructure:"models"`
}

// ModelsConfig maps each logical model name to a Replicate identifier
// of the form owner/name:version.
type ModelsConfig struct {
	IDMVTON string `mapstructure:"idm_vton" validate:"required"`
	OOTD    string `mapstructure:"ootd" validate:"required"`
	CatVTON string `mapstructure:"catvton" validate:"required"`
}

type ImageConfig struct {
	MaxDimension int           `mapstructure:"max_dimension" validate:"min=64"`
	JPEGQuality  int           `mapstructure:"jpeg_quality" validate:"min=1,max=100"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	LocalRoot    string        `mapstructure:"local_root"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic" validate:"required_with=Brokers"`
}

// Configured reports whether a provider credential is present.
func (r ReplicateConfig) Configured() bool {
	return r.APIToken != ""
}

// Identifier returns the Replicate identifier for a logical model name.
func (m ModelsConfig) Identifier(name string) (string, bool) {
	switch name {
	case ModelIDMVTON:
		return m.IDMVTON, true
	case ModelOOTD:
		return m.OOTD, true
	case ModelCatVTON:
		return m.CatVTON, true
	}
	return "", false
}

var envBindings = map[string]string{
	"replicate.api_token":       "REPLICATE_API_TOKEN",
	"replicate.default_model":   "DEFAULT_MODEL",
	"replicate.models.idm_vton": "IDM_VTON_MODEL",
	"replicate.models.ootd":     "OOTD_MODEL",
	"replicate.models.catvton":  "CATVTON_MODEL",
	"server.host":               "HOST",
	"server.port":               "PORT",
	"server.debug":              "DEBUG",
	"server.mode":               "GIN_MODE",
	"images.max_dimension":      "MAX_IMAGE_SIZE",
	"images.jpeg_quality":       "JPEG_QUALITY",
	"images.fetch_timeout":      "FETCH_TIMEOUT",
	"images.local_root":         "IMAGES_LOCAL_ROOT",
	"kafka.brokers":             "KAFKA_BROKERS",
	"kafka.topic":               "KAFKA_TOPIC",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.timeout", 180*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.debug", false)

	v.SetDefault("replicate.api_token", "")
	v.SetDefault("replicate.default_model", ModelIDMVTON)
	v.SetDefault("replicate.models.idm_vton", "cuuupid/idm-vton:0513734a452173b8173e907e3a59d19a36266e55b48528559432bd21c7d7e985")
	v.SetDefault("replicate.models.ootd", "viktorfa/oot_diffusion:9f8fa4956970dde99689af7488157a30aa152e23953526a605df1d77598343d7")
	v.SetDefault("replicate.models.catvton", "zhengchong/cat-vton:2e4e24460dd86bdb929df68ff1a76830c605ad1b7cbd4e51a6a1b71d4e5ed1f5")

	v.SetDefault("images.max_dimension", 768)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("images.fetch_timeout", 30*time.Second)
	v.SetDefault("images.local_root", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "vton-results")
}

// LoadConfig reads ./.env into the process environment (without overriding
// variables that are already set), then config.yaml from configPath if it
// exists, then the bound environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)

	viperInstance.AddConfigPath(configPath)
	viperInstance.SetConfigName("config")
	viperInstance.SetConfigType("yaml")

	if err := viperInstance.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	for key, env := range envBindings {
		if err := viperInstance.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	return viperInstance, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {

	var c Config

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
