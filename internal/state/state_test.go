package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/state"
)

func TestMachine_InitialStateIsUnconfigured(t *testing.T) {
	m := state.New()
	assert.Equal(t, state.Unconfigured, m.Current())
	assert.Equal(t, uint64(0), m.Generation())
}

func TestMachine_EncodeDecodeRejectedWhileUnconfigured(t *testing.T) {
	m := state.New()
	err := m.EncodeOrDecode()
	require.Error(t, err)
	named, ok := err.(interface{ Name() string })
	require.True(t, ok)
	assert.Equal(t, "InvalidStateError", named.Name())
}

func TestMachine_ConfigureThenEncodeDecodeSucceeds(t *testing.T) {
	m := state.New()
	require.NoError(t, m.Configure())
	assert.Equal(t, state.Configured, m.Current())
	require.NoError(t, m.EncodeOrDecode())
	require.NoError(t, m.Flush())
}

func TestMachine_ResetBumpsGenerationAndReturnsToUnconfigured(t *testing.T) {
	m := state.New()
	require.NoError(t, m.Configure())
	gen := m.Generation()
	require.NoError(t, m.Reset())
	assert.Equal(t, state.Unconfigured, m.Current())
	assert.Greater(t, m.Generation(), gen)
}

func TestMachine_ResetWhileUnconfiguredIsANoOpTransitionButBumpsGeneration(t *testing.T) {
	m := state.New()
	gen := m.Generation()
	require.NoError(t, m.Reset())
	assert.Equal(t, state.Unconfigured, m.Current())
	assert.Greater(t, m.Generation(), gen)
}

func TestMachine_CloseIsTerminalAndSecondCloseErrors(t *testing.T) {
	m := state.New()
	require.NoError(t, m.Configure())
	require.NoError(t, m.Close())
	assert.Equal(t, state.Closed, m.Current())

	err := m.Close()
	require.Error(t, err)

	err = m.EncodeOrDecode()
	require.Error(t, err)

	err = m.Reset()
	require.Error(t, err)
}

func TestMachine_ConfigureUnsupportedClosesTheMachine(t *testing.T) {
	m := state.New()
	require.NoError(t, m.Configure())
	gen := m.Generation()
	m.ConfigureUnsupported()
	assert.Equal(t, state.Closed, m.Current())
	assert.Greater(t, m.Generation(), gen)
}

func TestMachine_ConfigureOnClosedRejects(t *testing.T) {
	m := state.New()
	require.NoError(t, m.Configure())
	require.NoError(t, m.Close())
	err := m.Configure()
	require.Error(t, err)
}
