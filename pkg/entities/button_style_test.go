package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestButtonStyleRoundTrip(t *testing.T) {
	for _, style := range []ButtonStyle{StylePrimary, StyleSecondary, StyleSuccess, StyleDanger} {
		parsed, err := ParseButtonStyle(style.String())
		require.NoError(t, err)
		require.Equal(t, style, parsed)
	}
}

func TestParseButtonStyleUnknown(t *testing.T) {
	_, err := ParseButtonStyle("blurple")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown button style")
}

func TestButtonStyleJSON(t *testing.T) {
	got, err := json.Marshal(StyleDanger)
	require.NoError(t, err)
	require.Equal(t, `"danger"`, string(got))

	var style ButtonStyle
	require.NoError(t, json.Unmarshal([]byte(`"success"`), &style))
	require.Equal(t, StyleSuccess, style)
}
