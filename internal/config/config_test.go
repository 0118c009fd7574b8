package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))

	assert.Equal(t, 0.7, cfg.Detector.Threshold)
	assert.Equal(t, 2*time.Second, cfg.Controller.Dwell)
	assert.Equal(t, "mask", cfg.Labels.Positive)
	assert.Equal(t, "no mask", cfg.Labels.Negative)
	assert.Equal(t, 18, cfg.GPIO.AllowPin)
	assert.Equal(t, 23, cfg.GPIO.DenyPin)
}

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	src := `
detector:
  model_dir: models/mask
  threshold: 0.6
controller:
  dwell: 3s
  deny_dwell: 1s
mqtt:
  broker: tcp://192.168.1.200:1883
`
	cfg, err := LoadFromReader(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 0.6, cfg.Detector.Threshold)
	assert.Equal(t, "detect.tflite", cfg.Detector.Graph, "unset keys keep defaults")
	assert.Equal(t, filepath.Join("models/mask", "detect.tflite"), cfg.ModelPath())
	assert.Equal(t, filepath.Join("models/mask", "labelmap.txt"), cfg.LabelMapPath())
	assert.Equal(t, "tcp://192.168.1.200:1883", cfg.MQTT.Broker)

	d := cfg.Dwell()
	assert.Equal(t, 3*time.Second, d.Positive)
	assert.Equal(t, time.Second, d.Negative)
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadFromReaderUnknownKey(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("detectr:\n  threshold: 0.5\n"))
	require.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Detector.Threshold = 1.5
	cfg.GPIO.DenyPin = cfg.GPIO.AllowPin
	cfg.Labels.Negative = cfg.Labels.Positive

	err := Validate(&cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "log.level")
	assert.Contains(t, msg, "detector.threshold")
	assert.Contains(t, msg, "gpio.allow_pin")
	assert.Contains(t, msg, "labels.positive")
}

func TestValidateNegativeDwell(t *testing.T) {
	cfg := Default()
	cfg.Controller.GrantDwell = -time.Second
	assert.Error(t, Validate(&cfg))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mask-gate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: \"\"\nstore:\n  path: \"\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTP)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDwellSymmetricByDefault(t *testing.T) {
	cfg := Default()
	d := cfg.Dwell()
	assert.Equal(t, d.Positive, d.Negative)
}

func TestValidateZeroDwell(t *testing.T) {
	cfg := Default()
	cfg.Controller.Dwell = 0
	err := Validate(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "controller.dwell")
}
