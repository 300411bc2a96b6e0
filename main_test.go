package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"unified/types"
)

func TestConfigStylesDefaults(t *testing.T) {
	var c Config
	assert.Equal(t, types.DefaultStyles(), c.Styles(), "empty config keeps defaults")
}

func TestConfigStylesOverrides(t *testing.T) {
	c := Config{
		Signs:       map[string]string{"add": ">>"},
		Highlights:  map[string]string{"change": "MyChange"},
		LineSymbols: map[string]string{"delete": "x"},
	}

	s := c.Styles()

	assert.Equal(t, ">>", s.Add.Sign, "add sign overridden")
	assert.Equal(t, "MyChange", s.Change.Highlight, "change highlight overridden")
	assert.Equal(t, "x", s.Delete.Symbol, "delete symbol overridden")

	d := types.DefaultStyles()
	assert.Equal(t, d.Add.Highlight, s.Add.Highlight, "untouched fields keep defaults")
	assert.Equal(t, d.Change.Sign, s.Change.Sign, "untouched fields keep defaults")
}

func TestConfigUnmarshal(t *testing.T) {
	raw := `{
		"ns_id": 42,
		"ref": "main~2",
		"auto_refresh": true,
		"text_change_debounce": 300,
		"diff_mode": "git",
		"log_level": "debug",
		"signs": {"add": "+", "delete": "-", "change": "~"}
	}`

	var c Config
	assert.NoError(t, json.Unmarshal([]byte(raw), &c), "unmarshal")
	assert.Equal(t, 42, c.NsID, "ns_id")
	assert.Equal(t, "main~2", c.Ref, "ref")
	assert.True(t, c.AutoRefresh, "auto_refresh")
	assert.Equal(t, 300, c.TextChangeDebounce, "debounce")
	assert.Equal(t, "git", c.DiffMode, "diff_mode")
	assert.Equal(t, "debug", c.LogLevel, "log_level")
	assert.Equal(t, "~", c.Signs["change"], "sign table")
}
