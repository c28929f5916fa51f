package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		current    string
		constraint string
		wantErr    string
	}{
		{"0.1.0", "", ""},
		{"0.1.0", ">= 0.1", ""},
		{"0.1.0", ">= 0.1, < 1.0", ""},
		{"0.1.0", "~> 0.2", "does not satisfy"},
		{"1.2.0", "< 1.0", "does not satisfy"},
		{"0.1.0", "not a constraint", "invalid required_version"},
		{"dev", ">= 0.1", "invalid version format"},
	}
	for _, tt := range tests {
		err := check(tt.current, tt.constraint)
		if tt.wantErr == "" {
			assert.NoError(t, err, tt.constraint)
		} else {
			assert.ErrorContains(t, err, tt.wantErr, tt.constraint)
		}
	}
}

func TestInfo_String(t *testing.T) {
	i := Info{Version: "1.0.0", Platform: "linux/amd64", GoVersion: "go1.24.1"}
	assert.Equal(t, "lift version 1.0.0 (linux/amd64 go1.24.1)", i.String())
	assert.Contains(t, i.FullString(), "Platform: linux/amd64")
}
