package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColorSpace_RoundTripsThroughJSON(t *testing.T) {
	primaries := PrimariesBT2020
	transfer := TransferPQ
	matrix := MatrixBT2020NCL
	fullRange := false

	cs := NewColorSpace(&primaries, &transfer, &matrix, &fullRange)

	data, err := json.Marshal(cs)
	require.NoError(t, err)

	var round ColorSpace
	require.NoError(t, json.Unmarshal(data, &round))
	require.True(t, cs.Equal(round))
}

func TestColorSpace_ZeroValueIsAllNull(t *testing.T) {
	var cs ColorSpace
	require.Nil(t, cs.Primaries)
	require.Nil(t, cs.Transfer)
	require.Nil(t, cs.Matrix)
	require.Nil(t, cs.FullRange)

	data, err := json.Marshal(cs)
	require.NoError(t, err)
	require.JSONEq(t, `{"primaries":null,"transfer":null,"matrix":null,"fullRange":null}`, string(data))
}
