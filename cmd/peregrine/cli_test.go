package main

import (
	"io"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-sdr/peregrine/internal/config"
	"github.com/peregrine-sdr/peregrine/internal/samples"
)

func TestParseFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.SetDefaults()

	opts, err := parseFlags([]string{"-a", "-n", "-f", "1bit", "capture.bin"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "capture.bin", opts.Source)
	assert.True(t, opts.Pipeline.SkipAcquisition)
	assert.False(t, opts.Pipeline.SkipTracking)
	assert.True(t, opts.Pipeline.SkipNavigation)
	assert.Equal(t, samples.Format1Bit, opts.Pipeline.Format)
	assert.Equal(t, ".", opts.ConfigDir)
}

func TestParseFlags_LongForms(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.SetDefaults()

	opts, err := parseFlags([]string{"--skip-tracking", "--file-format=int8", "--config-dir", "/etc/peregrine", "x.bin"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, opts.Pipeline.SkipTracking)
	assert.Equal(t, "int8", opts.Pipeline.Format)
	assert.Equal(t, "/etc/peregrine", opts.ConfigDir)
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.SetDefaults()

	_, err := parseFlags([]string{"--ms", "1200", "--checkpoint-store", "memory", "x.bin"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 1200, viper.GetInt("receiver.msToProcess"))
	assert.Equal(t, "memory", viper.GetString("checkpoint.store"))
	// unchanged flags leave the configured value alone
	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "", viper.GetString("plot.dir"))
}

func TestParseFlags_Errors(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name string
		args []string
	}{
		{"no file", []string{"-a"}},
		{"two files", []string{"a.bin", "b.bin"}},
		{"unknown flag", []string{"--bogus", "a.bin"}},
		{"unknown format", []string{"-f", "piksi", "a.bin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}

	_, err := parseFlags([]string{"-h"}, io.Discard)
	assert.ErrorIs(t, err, pflag.ErrHelp)
}
