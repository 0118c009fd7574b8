// Package config loads the mask-gate configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/mask-gate/internal/gpio"
	"github.com/sweeney/mask-gate/internal/logic"
)

// Config is the complete daemon configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Detector   DetectorConfig   `yaml:"detector"`
	Labels     LabelsConfig     `yaml:"labels"`
	Controller ControllerConfig `yaml:"controller"`
	Camera     CameraConfig     `yaml:"camera"`
	Display    DisplayConfig    `yaml:"display"`
	GPIO       GPIOConfig       `yaml:"gpio"`
	Audio      AudioConfig      `yaml:"audio"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Heartbeat  time.Duration    `yaml:"heartbeat"`
	HTTP       string           `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DetectorConfig locates the model and sets the confidence gate.
type DetectorConfig struct {
	ModelDir    string  `yaml:"model_dir"`
	Graph       string  `yaml:"graph"`
	LabelMap    string  `yaml:"labelmap"`
	Threshold   float64 `yaml:"threshold"`
	InputWidth  int     `yaml:"input_width"`
	InputHeight int     `yaml:"input_height"`
	FloatModel  bool    `yaml:"float_model"`
}

// LabelsConfig names the labels that carry actuation meaning.
type LabelsConfig struct {
	Positive string `yaml:"positive"`
	Negative string `yaml:"negative"`
}

// ControllerConfig sets the dwell windows. Zero per-direction values fall
// back to Dwell.
type ControllerConfig struct {
	Dwell      time.Duration `yaml:"dwell"`
	GrantDwell time.Duration `yaml:"grant_dwell"`
	DenyDwell  time.Duration `yaml:"deny_dwell"`
}

// CameraConfig selects the video source.
type CameraConfig struct {
	Device string `yaml:"device"` // camera index, file path or stream URL
}

// DisplayConfig controls the preview window.
type DisplayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Title   string `yaml:"title"`
}

// GPIOConfig holds the indicator pins (BCM numbering).
type GPIOConfig struct {
	Chip     string `yaml:"chip"`
	AllowPin int    `yaml:"allow_pin"`
	DenyPin  int    `yaml:"deny_pin"`
}

// AudioConfig holds the cue file paths.
type AudioConfig struct {
	Granted string `yaml:"granted"`
	Denied  string `yaml:"denied"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// StoreConfig locates the transition log. An empty path disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Detector: DetectorConfig{
			Graph:       "detect.tflite",
			LabelMap:    "labelmap.txt",
			Threshold:   logic.DefaultThreshold,
			InputWidth:  300,
			InputHeight: 300,
		},
		Labels: LabelsConfig{
			Positive: logic.DefaultPositiveLabel,
			Negative: logic.DefaultNegativeLabel,
		},
		Controller: ControllerConfig{Dwell: logic.DefaultDwell},
		Camera:     CameraConfig{Device: "0"},
		Display:    DisplayConfig{Enabled: true, Title: "Object detector"},
		GPIO: GPIOConfig{
			Chip:     gpio.DefaultChip,
			AllowPin: gpio.DefaultPinAllow,
			DenyPin:  gpio.DefaultPinDeny,
		},
		Audio: AudioConfig{
			Granted: "media/granted.flac",
			Denied:  "media/denied.flac",
		},
		MQTT:      MQTTConfig{ClientID: "mask-gate"},
		Heartbeat: 15 * time.Minute,
		HTTP:      ":8080",
		Store:     StoreConfig{Path: "mask-gate.db"},
	}
}

// Load reads the YAML file at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	if cfg.Detector.Threshold < 0 || cfg.Detector.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("detector.threshold %v must be in [0, 1)", cfg.Detector.Threshold))
	}
	if cfg.Detector.InputWidth <= 0 || cfg.Detector.InputHeight <= 0 {
		errs = append(errs, fmt.Errorf("detector input size %dx%d must be positive", cfg.Detector.InputWidth, cfg.Detector.InputHeight))
	}

	if cfg.Labels.Positive == "" || cfg.Labels.Negative == "" {
		errs = append(errs, errors.New("labels.positive and labels.negative are required"))
	} else if cfg.Labels.Positive == cfg.Labels.Negative {
		errs = append(errs, fmt.Errorf("labels.positive and labels.negative are both %q", cfg.Labels.Positive))
	}

	if cfg.Controller.Dwell <= 0 {
		errs = append(errs, fmt.Errorf("controller.dwell %v must be positive", cfg.Controller.Dwell))
	}
	if cfg.Controller.GrantDwell < 0 || cfg.Controller.DenyDwell < 0 {
		errs = append(errs, errors.New("controller dwell durations must not be negative"))
	}

	if cfg.GPIO.AllowPin < 0 || cfg.GPIO.DenyPin < 0 {
		errs = append(errs, errors.New("gpio pins must not be negative"))
	} else if cfg.GPIO.AllowPin == cfg.GPIO.DenyPin {
		errs = append(errs, fmt.Errorf("gpio.allow_pin and gpio.deny_pin are both %d", cfg.GPIO.AllowPin))
	}

	if cfg.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}

	return errors.Join(errs...)
}

// ModelPath returns the path of the model graph.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Detector.ModelDir, c.Detector.Graph)
}

// LabelMapPath returns the path of the label map.
func (c *Config) LabelMapPath() string {
	return filepath.Join(c.Detector.ModelDir, c.Detector.LabelMap)
}

// Dwell returns the per-direction dwell windows.
func (c *Config) Dwell() logic.Dwell {
	d := logic.SymmetricDwell(c.Controller.Dwell)
	if c.Controller.GrantDwell > 0 {
		d.Positive = c.Controller.GrantDwell
	}
	if c.Controller.DenyDwell > 0 {
		d.Negative = c.Controller.DenyDwell
	}
	return d
}
