// Package config loads the channel subscription list.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Channel is one subscribed content channel. Read-only once loaded.
type Channel struct {
	ChannelID string   `yaml:"channel_id"`
	Name      string   `yaml:"name"`
	Tags      []string `yaml:"tags,omitempty"`
	Active    *bool    `yaml:"active,omitempty"` // nil means active
}

type channelsFile struct {
	Channels []Channel `yaml:"channels"`
}

// LoadChannels reads the channel list from a YAML file, validates required
// keys, and filters out inactive entries.
func LoadChannels(path string) ([]Channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("channels: read %s: %w", path, err)
	}

	var f channelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("channels: parse %s: %w", path, err)
	}

	active := make([]Channel, 0, len(f.Channels))
	for i, ch := range f.Channels {
		if ch.ChannelID == "" || ch.Name == "" {
			return nil, fmt.Errorf("channels: entry %d missing channel_id or name", i)
		}
		if ch.Active != nil && !*ch.Active {
			continue
		}
		active = append(active, ch)
	}
	return active, nil
}
