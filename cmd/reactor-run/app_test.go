package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWrapper() (*Wrapper, *bytes.Buffer) {
	var stderr bytes.Buffer
	wrapper := NewWrapper()
	wrapper.stdout = new(bytes.Buffer)
	wrapper.stderr = &stderr
	return wrapper, &stderr
}

func TestWrapper_run(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: debug\n")
	scriptPath := writeFile(t, "script.js", `
		const core = require('luaevent.core');
		const b = core.new();
		let calls = 0;
		b.addevent(null, core.EV_TIMEOUT, () => {
			console.log('tick', ++calls);
			if (calls === 2) {
				return core.LEAVE;
			}
		}, 0.001);
		if (b.loop() !== 1) {
			throw new Error('unexpected status');
		}
	`)

	wrapper, stderr := newTestWrapper()
	require.NoError(t, wrapper.Run([]string{"reactor-run", "--config", configPath, "run", scriptPath}))

	var ticks []any
	for _, line := range logMessages(t, stderr) {
		if line["source"] == "console" {
			ticks = append(ticks, line["msg"])
		}
	}
	assert.Equal(t, []any{"tick 1", "tick 2"}, ticks)
	assert.Contains(t, stderr.String(), `"running script"`)
}

func TestWrapper_runScriptError(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: off\n")
	scriptPath := writeFile(t, "script.js", `throw new Error('boom')`)

	wrapper, _ := newTestWrapper()
	err := wrapper.Run([]string{"reactor-run", "--config", configPath, "run", scriptPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestWrapper_runMissingPath(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: off\n")

	wrapper, _ := newTestWrapper()
	err := wrapper.Run([]string{"reactor-run", "--config", configPath, "run"})
	assert.EqualError(t, err, "missing script path")
}

func TestWrapper_logLevelFlagOverrides(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: debug\n")
	scriptPath := writeFile(t, "script.js", `console.log('quiet')`)

	wrapper, stderr := newTestWrapper()
	require.NoError(t, wrapper.Run([]string{"reactor-run", "--config", configPath, "--log-level", "err", "run", scriptPath}))
	assert.Empty(t, stderr.String())
}

func TestWrapper_invalidLogLevel(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: loud\n")
	scriptPath := writeFile(t, "script.js", `1`)

	wrapper, _ := newTestWrapper()
	err := wrapper.Run([]string{"reactor-run", "--config", configPath, "run", scriptPath})
	assert.EqualError(t, err, `unknown log level "loud"`)
}

func TestWrapper_metrics(t *testing.T) {
	configPath := writeFile(t, "config.yaml", "log_level: info\nmetrics_addr: 127.0.0.1:0\n")
	scriptPath := writeFile(t, "script.js", `require('luaevent.core').new().loop()`)

	wrapper, stderr := newTestWrapper()
	require.NoError(t, wrapper.Run([]string{"reactor-run", "--config", configPath, "run", scriptPath}))
	assert.Contains(t, stderr.String(), `"serving metrics"`)
	require.NotNil(t, wrapper.collector)
}
