package motor

import (
	"fmt"
	"io/ioutil"
	"os"

	deverrors "github.com/rehagrip/rehagrip/motor/errors"
	"gopkg.in/yaml.v2"
)

// Factory calibration for the shipped mounting plates. Overridable per
// device via the yaml config.
const (
	RightCenterTick = 3046
	LeftCenterTick  = 1000
)

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	ID   int    `yaml:"id"`
}

type RehaGripConfig struct {
	Version int          `yaml:"version"`
	Serial  SerialConfig `yaml:"serial"`

	Centers map[string]int `yaml:"centers,flow"`

	DefaultVelocity  int `yaml:"default_velocity"`
	MaxTickRate      int `yaml:"max_tick_rate"` // ticks per second at 100% velocity
	MotionIntervalMs int `yaml:"motion_interval_ms"`
}

func DefaultConfig() RehaGripConfig {
	return RehaGripConfig{
		Version: 1,
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 57600,
			ID:   1,
		},
		Centers: map[string]int{
			string(HandRight): RightCenterTick,
			string(HandLeft):  LeftCenterTick,
		},
		DefaultVelocity:  50,
		MaxTickRate:      1200,
		MotionIntervalMs: 100,
	}
}

// LoadConfig reads the device yaml file. A missing file is not an error;
// the factory defaults apply.
func LoadConfig(filename string) (config RehaGripConfig, err error) {
	config = DefaultConfig()

	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, fmt.Errorf("unable to read config file: %v", err)
	}

	if err = yaml.Unmarshal(raw, &config); err != nil {
		return config, fmt.Errorf("unable to unmarshal config: %v", err)
	}

	config.applyDefaults()
	err = config.Validate()
	return
}

func (c *RehaGripConfig) applyDefaults() {
	def := DefaultConfig()
	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
	if c.Serial.ID == 0 {
		c.Serial.ID = def.Serial.ID
	}
	if c.Centers == nil {
		c.Centers = def.Centers
	}
	for hand, tick := range def.Centers {
		if _, ok := c.Centers[hand]; !ok {
			c.Centers[hand] = tick
		}
	}
	if c.DefaultVelocity == 0 {
		c.DefaultVelocity = def.DefaultVelocity
	}
	if c.MaxTickRate == 0 {
		c.MaxTickRate = def.MaxTickRate
	}
	if c.MotionIntervalMs == 0 {
		c.MotionIntervalMs = def.MotionIntervalMs
	}
}

func (c *RehaGripConfig) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unable to work with config version %d", c.Version)
	}
	for hand, tick := range c.Centers {
		if _, err := ParseHand(hand); err != nil {
			return err
		}
		if tick < 0 || tick > FullTicks {
			return deverrors.InvalidInputError{
				Field:  "centers." + hand,
				Reason: fmt.Sprintf("tick %d outside [0, %d]", tick, FullTicks),
			}
		}
	}
	if c.DefaultVelocity < 1 || c.DefaultVelocity > 100 {
		return deverrors.InvalidInputError{Field: "default_velocity", Reason: "must be within [1, 100]"}
	}
	if c.MaxTickRate < 1 {
		return deverrors.InvalidInputError{Field: "max_tick_rate", Reason: "must be positive"}
	}
	if c.MotionIntervalMs < 1 {
		return deverrors.InvalidInputError{Field: "motion_interval_ms", Reason: "must be positive"}
	}
	return nil
}

// CenterFor returns the calibrated center tick for a hand.
func (c *RehaGripConfig) CenterFor(hand Hand) int {
	return c.Centers[string(hand)]
}
