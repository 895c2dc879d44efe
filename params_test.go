package pcmtest_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/pcmtest"
)

func writeParamsFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadParams(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "YAML",
			file: "pcmtest.yaml",
			content: `
id: loopcheck
fill_mode: rand
fill_pattern: xyzzy
inject_delay: 20ms
inject_trigger_err: true
ticks_per_second: 50
`,
		},
		{
			name: "TOML",
			file: "pcmtest.toml",
			content: `
id = "loopcheck"
fill_mode = "rand"
fill_pattern = "xyzzy"
inject_delay = "20ms"
inject_trigger_err = true
ticks_per_second = 50
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := pcmtest.LoadParams(writeParamsFile(t, tc.file, tc.content))
			require.NoError(t, err)

			assert.Equal(t, -1, p.Index, "keys missing from the file should keep their default")
			assert.Equal(t, "loopcheck", p.ID)
			assert.Equal(t, pcmtest.FillModeRandom, p.FillMode)
			assert.Equal(t, "xyzzy", p.Pattern)
			assert.Equal(t, 20*time.Millisecond, p.InjectDelay)
			assert.True(t, p.InjectTriggerErr)
			assert.False(t, p.InjectHwParamsErr)
			assert.Equal(t, 50, p.TicksPerSecond)
			assert.Equal(t, 20*time.Millisecond, p.TickInterval())
		})
	}
}

func TestLoadParamsErrors(t *testing.T) {
	_, err := pcmtest.LoadParams(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = pcmtest.LoadParams(writeParamsFile(t, "pcmtest.json", `{}`))
	assert.Error(t, err, "unknown extensions should be rejected")

	_, err = pcmtest.LoadParams(writeParamsFile(t, "pcmtest.yaml", "fill_mode: sine\n"))
	assert.Error(t, err, "unknown fill modes should be rejected")

	_, err = pcmtest.LoadParams(writeParamsFile(t, "pcmtest.toml", "ticks_per_second = 1000\n"))
	assert.Error(t, err, "out of range timer frequencies should be rejected")
}

func TestFillModeText(t *testing.T) {
	testCases := map[string]pcmtest.FillMode{
		"rand":    pcmtest.FillModeRandom,
		"random":  pcmtest.FillModeRandom,
		"0":       pcmtest.FillModeRandom,
		"pattern": pcmtest.FillModePattern,
		"PAT":     pcmtest.FillModePattern,
		" 1 ":     pcmtest.FillModePattern,
	}

	for text, want := range testCases {
		var m pcmtest.FillMode
		require.NoError(t, m.UnmarshalText([]byte(text)), "UnmarshalText(%q)", text)
		assert.Equal(t, want, m, "UnmarshalText(%q)", text)
	}

	var m pcmtest.FillMode
	assert.Error(t, m.UnmarshalText([]byte("noise")))

	out, err := pcmtest.FillModePattern.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "pattern", string(out))
	assert.Equal(t, "rand", pcmtest.FillModeRandom.String())
}

func TestValidateDefaults(t *testing.T) {
	var p pcmtest.Params
	require.NoError(t, pcmtest.Validate(&p))

	assert.Equal(t, "pcmtest", p.ID)
	assert.Equal(t, pcmtest.DefaultPattern, p.Pattern)
	assert.Equal(t, pcmtest.DefaultTicksPerSecond, p.TicksPerSecond)
	assert.Equal(t, 200*time.Millisecond, p.TickInterval())

	p.Index = -2
	assert.Error(t, pcmtest.Validate(&p))
}
