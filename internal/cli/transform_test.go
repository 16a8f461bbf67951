package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"keep=first",
		"threshold=50.5",
		"normalize=true",
		"limit=10",
	})
	require.NoError(t, err)

	assert.Equal(t, "first", params["keep"])
	assert.Equal(t, 50.5, params["threshold"])
	assert.Equal(t, true, params["normalize"])
	assert.Equal(t, int64(10), params["limit"])
}

func TestParseParams_Errors(t *testing.T) {
	_, err := parseParams([]string{"keepfirst"})
	require.ErrorContains(t, err, "expected key=value")

	_, err = parseParams([]string{"=value"})
	require.Error(t, err)
}

func TestParseParams_Empty(t *testing.T) {
	params, err := parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestTypedValue_ValueWithEquals(t *testing.T) {
	params, err := parseParams([]string{"value=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", params["value"])
}
