package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karasz/gtscale/tai64"
)

func TestParseGTScaleCArgs(t *testing.T) {
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		args    []string
		addr    string
		query   []byte
		wantErr bool
	}{
		{name: "no arguments", wantErr: true},
		{name: "too many arguments", args: []string{"a", "b", "c"}, wantErr: true},
		{name: "bad address", args: []string{"time.example"}, wantErr: true},
		{
			name:  "current time",
			args:  []string{"127.0.0.1"},
			addr:  "127.0.0.1:4015",
			query: utcQuery(tai64.Label{Sec: 0x40000000586846A5}),
		},
		{
			name:  "explicit port and label",
			args:  []string{"[::1]:9000", "@4000000005a4ec0b00000000"},
			addr:  "[::1]:9000",
			query: utcQuery(tai64.Label{Sec: 0x4000000005A4EC0B}),
		},
		{
			name:  "utc leap second",
			args:  []string{"10.0.0.1", "1972-12-31T23:59:60Z"},
			addr:  "10.0.0.1:4015",
			query: taiQuery(mjd19721231, nanosPerDay),
		},
		{name: "bad label", args: []string{"10.0.0.1", "@zz"}, wantErr: true},
		{name: "bad utc", args: []string{"10.0.0.1", "1972-12-30T23:59:60Z"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, query, err := parseGTScaleCArgs(tt.args, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, addr)
			assert.Equal(t, tt.query, query)
		})
	}
}

func TestPrintConversion(t *testing.T) {
	var buf bytes.Buffer
	c := conversion{
		label:     tai64.Label{Sec: 0x4000000005A4EC0B, Nano: 250_000_000},
		day:       mjd19721231,
		nanoOfDay: nanosPerDay + 250_000_000,
		offset:    11,
	}
	require.NoError(t, printConversion(&buf, c))
	assert.Equal(t, "tai: @4000000005A4EC0B0EE6B280\nutc: 1972-12-31T23:59:60.250000000Z\ntai-utc: 11\n", buf.String())
}
