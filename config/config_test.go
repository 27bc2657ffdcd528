package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	fs := pflag.NewFlagSet("blase", pflag.ContinueOnError)
	Flags(fs)

	require.NoError(t, fs.Parse(args))

	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(flagSet(t))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
}

func TestLoadPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blase.yaml")

	require.NoError(t, os.WriteFile(file, []byte("parser-pool-size: 2\nlocale: uk\nwatch: true\ndiagnostics-delay: 1s\n"), 0o644))

	t.Setenv("BLASE_PARSER_POOL_SIZE", "3")
	t.Setenv("BLASE_VIEW_PATHS", "views,templates")

	cfg, err := Load(flagSet(t, "--config", file, "--locale", "ru", "-vv"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ParserPoolSize)
	assert.Equal(t, "ru", cfg.Locale)
	assert.Equal(t, 2, cfg.Verbosity)
	assert.True(t, cfg.Watch)
	assert.Equal(t, time.Second, cfg.DiagnosticsDelay)
	assert.Equal(t, []string{"views", "templates"}, cfg.ViewPaths)
}

func TestLoadInvalid(t *testing.T) {
	list := []struct {
		Args []string
	}{
		{[]string{"--locale", "de"}},
		{[]string{"--parser-pool-size", "0"}},
		{[]string{"--web-socket", "70000"}},
		{[]string{"--metrics-addr", "nowhere"}},
	}

	for i, item := range list {
		_, err := Load(flagSet(t, item.Args...))

		if !assert.ErrorIs(t, err, ErrInvalid) {
			t.Errorf("%d - args: %v", i+1, item.Args)
		}
	}

	_, err := Load(flagSet(t, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	opts, err := DecodeClientOptions(map[string]any{
		"blase": map[string]any{
			"locale":           "uk",
			"diagnosticsDelay": float64(50),
			"viewPaths":        []any{"views"},
			"watch":            true,
		},
	})
	require.NoError(t, err)

	cfg, err := Default().With(opts)
	require.NoError(t, err)

	assert.Equal(t, "uk", cfg.Locale)
	assert.Equal(t, 50*time.Millisecond, cfg.DiagnosticsDelay)
	assert.Equal(t, []string{"views"}, cfg.ViewPaths)
	assert.True(t, cfg.Watch)
	assert.True(t, cfg.LoadWorkspace)

	empty, err := DecodeClientOptions(nil)
	require.NoError(t, err)

	same, err := Default().With(empty)
	require.NoError(t, err)
	assert.Equal(t, Default(), same)

	bad, err := DecodeClientOptions(map[string]any{"locale": "xx"})
	require.NoError(t, err)

	_, err = Default().With(bad)
	assert.ErrorIs(t, err, ErrInvalid)
}
