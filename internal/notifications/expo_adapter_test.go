package notifications

import (
	"testing"

	"github.com/9ssi7/exponent"
	"github.com/stretchr/testify/require"
)

func TestNewExpoAdapter(t *testing.T) {
	adapter := NewExpoAdapter(exponent.NewClient())
	require.NotNil(t, adapter)

	var _ PushSender = adapter
}

func TestDedupe(t *testing.T) {
	tokens := []string{
		"ExponentPushToken[aaa]",
		"",
		"ExponentPushToken[bbb]",
		"ExponentPushToken[aaa]",
	}

	require.Equal(t, []string{
		"ExponentPushToken[aaa]",
		"ExponentPushToken[bbb]",
	}, dedupe(tokens))
}

func TestDedupeEmpty(t *testing.T) {
	require.Empty(t, dedupe(nil))
	require.Empty(t, dedupe([]string{"", ""}))
}
