// config_test.go

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
# top-level comment
frequency = 48000
drivers = pulse, alsa, oss

[alsa]
device = "hw:0,0"
mmap = true

[reverb]
boost = no
`

func TestParse_ReadsGeneralAndNamedSections(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	freq, ok := cfg.Int("general", "frequency")
	require.True(t, ok)
	assert.Equal(t, 48000, freq)

	device, ok := cfg.String("alsa", "device")
	require.True(t, ok)
	assert.Equal(t, "hw:0,0", device)

	mmap, ok := cfg.Bool("alsa", "mmap")
	require.True(t, ok)
	assert.True(t, mmap)

	boost, ok := cfg.Bool("reverb", "boost")
	require.True(t, ok)
	assert.False(t, boost)
}

func TestParse_StringListSplitsAndTrims(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	drivers, ok := cfg.StringList("general", "drivers")
	require.True(t, ok)
	assert.Equal(t, []string{"pulse", "alsa", "oss"}, drivers)
}

func TestParse_MissingKeyReportsNotOK(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	_, ok := cfg.String("alsa", "nonexistent")
	assert.False(t, ok)

	_, ok = cfg.String("nonexistent-section", "device")
	assert.False(t, ok)
}

func TestDriverPreference_EnvOverridesFile(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	t.Setenv("ALSOFT_DRIVERS", "oss, null")
	assert.Equal(t, []string{"oss", "null"}, DriverPreference(cfg))

	t.Setenv("ALSOFT_DRIVERS", "")
	assert.Equal(t, []string{"pulse", "alsa", "oss"}, DriverPreference(cfg))

	assert.Nil(t, DriverPreference(nil))
}

func TestEnvConfigPath(t *testing.T) {
	t.Setenv("ALSOFT_CONF", "")
	_, ok := EnvConfigPath()
	assert.False(t, ok)

	t.Setenv("ALSOFT_CONF", "/tmp/alsoft.conf")
	path, ok := EnvConfigPath()
	assert.True(t, ok)
	assert.Equal(t, "/tmp/alsoft.conf", path)
}

func TestParse_RejectsMalformedLine(t *testing.T) {
	_, err := Parse(strings.NewReader("not a valid line"))
	assert.Error(t, err)
}

func TestParse_RejectsUnterminatedSection(t *testing.T) {
	_, err := Parse(strings.NewReader("[general"))
	assert.Error(t, err)
}
