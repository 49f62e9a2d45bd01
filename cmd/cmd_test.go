package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karasz/gtscale/timescale"
)

// builtinConverter converts with the compiled-in leap second table.
func builtinConverter(t *testing.T) *timescale.Converter {
	t.Helper()
	reg, err := timescale.LoadRegistry([]timescale.Source{timescale.Builtin()})
	require.NoError(t, err)
	return timescale.NewConverter(reg)
}

func TestMainDispatcher(t *testing.T) {
	require.Equal(t, 1, MainDispatcher(nil))
	require.Equal(t, 1, MainDispatcher([]string{"nosuchapplet"}))
	for _, name := range []string{"gtaiutc", "gtscale", "gtscalec", "gtscaled"} {
		require.Contains(t, Applets, name)
	}
}
