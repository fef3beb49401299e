package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/ublock-filter-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		conf    models.LogConfig
		wantErr bool
	}{
		{name: "text", conf: models.LogConfig{Level: "info", Format: "text"}},
		{name: "json_debug", conf: models.LogConfig{Level: "debug", Format: "json", Timestamp: true}},
		{name: "bad_format", conf: models.LogConfig{Level: "info", Format: "yaml"}, wantErr: true},
		{name: "bad_level", conf: models.LogConfig{Level: "loud", Format: "text"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLogger(tt.conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestPrintSink(t *testing.T) {
	s := &printSink{}
	s.SetHeader("DNT", "1")
	s.SetHeader("DNT", "1")

	assert.Equal(t, map[string]string{"DNT": "1"}, s.headers)
	assert.Nil(t, s.redirect)
}

func TestRunInit(t *testing.T) {
	prev := cfgFile
	t.Cleanup(func() { cfgFile = prev })

	cfgFile = filepath.Join(t.TempDir(), "configs", "filter_lists.toml")

	require.NoError(t, runInit(initCmd, nil))

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig, string(data))

	assert.Error(t, runInit(initCmd, nil))
}
