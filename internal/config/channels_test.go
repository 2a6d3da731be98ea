package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeChannels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadChannels(t *testing.T) {
	path := writeChannels(t, `
channels:
  - channel_id: UCaaa
    name: 財經頻道 A
    tags: [stocks, macro]
  - channel_id: UCbbb
    name: Channel B
    active: false
  - channel_id: UCccc
    name: Channel C
    active: true
`)
	chs, err := LoadChannels(path)
	require.NoError(t, err)
	require.Len(t, chs, 2, "inactive entries must be filtered")
	require.Equal(t, "UCaaa", chs[0].ChannelID)
	require.Equal(t, "財經頻道 A", chs[0].Name)
	require.Equal(t, []string{"stocks", "macro"}, chs[0].Tags)
	require.Equal(t, "UCccc", chs[1].ChannelID)
}

func TestLoadChannelsMissingKey(t *testing.T) {
	path := writeChannels(t, `
channels:
  - name: no id here
`)
	_, err := LoadChannels(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing channel_id")
}

func TestLoadChannelsMissingFile(t *testing.T) {
	_, err := LoadChannels(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
