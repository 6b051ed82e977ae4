package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterTable(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("table")
	f.SetWriter(&buf)

	f.Print([]string{"device_id", "address"}, [][]string{
		{"599", "192.168.1.20"},
		{"7", "10.0.0.1"},
	})

	out := buf.String()
	assert.Contains(t, out, "device_id")
	assert.Contains(t, out, "599")
	assert.Contains(t, out, "---")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
}

func TestFormatterJSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("json")
	f.SetWriter(&buf)

	f.Print([]string{"device_id", "vendor_id"}, [][]string{{"599", "15"}})

	var records []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "599", records[0]["device_id"])
	assert.Equal(t, "15", records[0]["vendor_id"])
}

func TestFormatterCSV(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("csv")
	f.SetWriter(&buf)

	f.Print([]string{"device_id", "address"}, [][]string{{"599", "192.168.1.20"}})

	assert.Equal(t, "device_id,address\n599,192.168.1.20\n", buf.String())
}

func TestFormatterKeyValue(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("table")
	f.SetWriter(&buf)

	f.PrintKeyValue(map[string]interface{}{
		"function": "original-broadcast-npdu",
		"length":   12,
	}, []string{"function", "length"})

	out := buf.String()
	assert.Contains(t, out, "function: original-broadcast-npdu")
	assert.Contains(t, out, "length  : 12")
}
