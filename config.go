package agent

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the file-loadable subset of an Agent's instance configuration.
// Apply it with Agent.Configure.
type Config struct {
	// Name identifies the agent in signals, logs and errors.
	Name string `json:"name" yaml:"name" validate:"omitempty,max=128,printascii"`

	// Mailbox overrides DefaultMailbox when set.
	Mailbox *int `json:"mailbox" yaml:"mailbox" validate:"omitempty,min=0,max=65536"`
}

// Validate checks the config's field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

// SupervisorConfig is the file-loadable configuration of a Supervisor.
// Apply it with Supervisor.Configure.
type SupervisorConfig struct {
	// ErrorHistory is the number of escalated failures to retain.
	ErrorHistory int `json:"error_history" yaml:"error_history" validate:"min=0,max=4096"`
}

// Validate checks the config's field constraints.
func (c SupervisorConfig) Validate() error {
	return validate.Struct(c)
}

// LoadConfig decodes and validates an agent Config.
func LoadConfig(data []byte, codec Codec) (Config, error) {
	return load[Config](data, codec)
}

// LoadSupervisorConfig decodes and validates a SupervisorConfig.
func LoadSupervisorConfig(data []byte, codec Codec) (SupervisorConfig, error) {
	return load[SupervisorConfig](data, codec)
}

func load[T interface{ Validate() error }](data []byte, codec Codec) (T, error) {
	var cfg T
	if codec == nil {
		codec = YAMLCodec{}
	}
	if err := codec.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode %s config: %w", codec.ContentType(), err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
