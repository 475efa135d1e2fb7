package util

import (
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"strings"
	"testing"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "a:1", want: []string{"a:1"}},
		{in: " a:1, b:2 ,,", want: []string{"a:1", "b:2"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, SplitList(tt.in))
		})
	}
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString(strings.Repeat("word ", 30))
	for _, line := range strings.Split(wrapped, "\n") {
		require.LessOrEqual(t, len(line), Wrap)
	}
}

func TestFactories(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"tcp", "unix", "http"} {
		viper.Set("transport", name)
		_, err := GetServerTransport(GetServerTransportConfig())
		require.NoError(t, err)
		newTransport, err := GetClientTransport()
		require.NoError(t, err)
		require.NotNil(t, newTransport())
	}

	viper.Set("transport", "carrier-pigeon")
	_, err := GetClientTransport()
	require.Error(t, err)

	viper.Set("serializer", "yaml")
	_, err = GetSerializer()
	require.Error(t, err)
}

func TestClientConfigFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("timeout", 7)
	viper.Set("transport-endpoints", "a:1,b:2")
	viper.Set("transport-read-buffer", 2)

	config := GetClientConfig()
	require.Equal(t, 7, config.TimeoutSecond)
	require.Equal(t, []string{"a:1", "b:2"}, config.Transport.Endpoints)
	require.Equal(t, 2048, config.Transport.ReadBufferSize)
}
