package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: unknown,
		},
		{
			name:     "version with alpha",
			input:    "v1.0.0-alpha.1",
			expected: "v1.0.0",
		},
		{
			name:     "version with beta",
			input:    "v1.0.0-beta.2",
			expected: "v1.0.0",
		},
		{
			name:     "version without suffix",
			input:    "v1.0.0",
			expected: "v1.0.0",
		},
		{
			name:     "version with commit hash",
			input:    "v0.0.0-master+d3b0738",
			expected: "v0.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adjustVersion(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAdjustCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: unknown,
		},
		{
			name:     "simple command",
			input:    "oss-credentials",
			expected: "oss-credentials",
		},
		{
			name:     "path command",
			input:    "/usr/local/bin/oss-credentials",
			expected: "oss-credentials",
		},
		{
			name:     "relative path",
			input:    "./oss-credentials",
			expected: "oss-credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adjustCommand(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAdjustCommit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: unknown,
		},
		{
			name:     "short commit",
			input:    "d3b0738",
			expected: "d3b0738",
		},
		{
			name:     "long commit",
			input:    "d3b0738451234567890",
			expected: "d3b0738",
		},
		{
			name:     "exact 7 chars",
			input:    "1234567",
			expected: "1234567",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := adjustCommit(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestInfo(t *testing.T) {
	info := Info{
		GitVersion: "v1.2.3-rc.1",
		GitCommit:  "d3b0738451234567890",
		BuildDate:  "2024-01-01T00:00:00Z",
		GoVersion:  "go1.24.0",
		Platform:   "linux/amd64",
	}

	assert.Equal(t, "oss-credentials v1.2.3 (linux/amd64) d3b0738451234567890 2024-01-01T00:00:00Z", info.String())
	assert.Equal(t, "ossutil/v1.2.3 (linux/amd64) oss-credentials/d3b0738", info.UserAgent("/usr/bin/ossutil"))
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
	assert.Contains(t, UA, "oss-credentials/")
	assert.Equal(t, info.String(), Version)
}
