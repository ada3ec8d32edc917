package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.yaml", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.yaml"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag followed by another flag has no value",
			args:         []string{"-c", "-db"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "multiple allowed flags kept in order",
			args:         []string{"-a", "localhost:50051", "-c", "conf.json", "--other", "x"},
			allowedFlags: []string{"-c", "-a"},
			want:         []string{"-a", "localhost:50051", "-c", "conf.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short -c", []string{"-c", "/path/short.json"}, "/path/short.json"},
		{"long -config", []string{"-config", "/path/long.yaml"}, "/path/long.yaml"},
		{"equals form", []string{"-a", "h:1", "-config=/p.yml"}, "/p.yml"},
		{"other flags ignored", []string{"-a", "host:1", "-i", "2"}, ""},
		{"no args", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFlag(tt.args))
		})
	}
}
