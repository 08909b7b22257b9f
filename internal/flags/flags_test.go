package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "known flag set to true returns true",
			registry: New(map[string]bool{"feature-a": true}),
			flag:     "feature-a",
			expected: true,
		},
		{
			name:     "known flag set to false returns false",
			registry: New(map[string]bool{"feature-b": false}),
			flag:     "feature-b",
			expected: false,
		},
		{
			name:     "unknown flag returns false",
			registry: New(map[string]bool{"feature-a": true}),
			flag:     "unknown-flag",
			expected: false,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagJobHistory,
			expected: false,
		},
		{
			name:     "default applies when not configured",
			registry: New(nil),
			flag:     FlagJobHistory,
			expected: true,
		},
		{
			name:     "configured value overrides default",
			registry: New(map[string]bool{FlagRemovableDetect: false}),
			flag:     FlagRemovableDetect,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.registry.Enabled(tt.flag)
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestRegistry_All(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		expected map[string]bool
	}{
		{
			name:     "merges configured flags over defaults",
			registry: New(map[string]bool{"a": true, FlagJobHistory: false}),
			expected: map[string]bool{"a": true, FlagJobHistory: false, FlagRemovableDetect: true},
		},
		{
			name:     "returns empty map for nil registry",
			registry: nil,
			expected: map[string]bool{},
		},
		{
			name:     "returns defaults for nil flags",
			registry: New(nil),
			expected: Defaults(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.registry.All()
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestRegistry_All_ReturnsDefensiveCopy(t *testing.T) {
	r := New(map[string]bool{"feature-a": true})

	copy := r.All()
	copy["feature-a"] = false
	copy["new-flag"] = true

	require.True(t, r.Enabled("feature-a"), "registry should not be affected by copy mutation")
	require.False(t, r.Enabled("new-flag"), "registry should not have new flags from copy mutation")
}

func TestNew_DoesNotAliasInput(t *testing.T) {
	in := map[string]bool{FlagJobHistory: false}
	r := New(in)
	in[FlagJobHistory] = true
	require.False(t, r.Enabled(FlagJobHistory))
}
