package domain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolRegistry_Register(t *testing.T) {
	registry := NewToolRegistry()

	err := registry.Register(&Tool{Name: "alpha"})
	require.NoError(t, err)

	err = registry.Register(&Tool{Name: "alpha"})
	assert.Error(t, err, "duplicate names must be rejected")

	err = registry.Register(&Tool{Name: ""})
	assert.Error(t, err)

	tool, ok := registry.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tool.Name)

	_, ok = registry.Get("beta")
	assert.False(t, ok)
}

func TestToolRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	registry := NewToolRegistry()
	require.NoError(t, registry.Register(&Tool{Name: "zeta"}))
	require.NoError(t, registry.Register(&Tool{Name: "alpha"}))
	require.NoError(t, registry.Register(&Tool{Name: "mid"}))

	var listed []string
	for _, tool := range registry.List() {
		listed = append(listed, tool.Name)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, listed)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, registry.Names())
}

func TestToolRegistry_RunNeverRaises(t *testing.T) {
	registry := NewToolRegistry()
	require.NoError(t, registry.Register(&Tool{
		Name: "failing",
		Execute: func(context.Context, map[string]interface{}) (string, error) {
			return "", errors.New("backend down")
		},
	}))
	require.NoError(t, registry.Register(&Tool{
		Name: "ok",
		Execute: func(context.Context, map[string]interface{}) (string, error) {
			return "all good", nil
		},
	}))

	out := registry.Run(context.Background(), ToolCall{Name: "nope"})
	assert.Contains(t, out, "Error")

	out = registry.Run(context.Background(), ToolCall{Name: "failing"})
	assert.Contains(t, out, "Error executing failing")
	assert.Contains(t, out, "backend down")

	out = registry.Run(context.Background(), ToolCall{Name: "ok"})
	assert.Equal(t, "all good", out)
}

func TestToolCall_ArgumentsMap(t *testing.T) {
	call := ToolCall{Arguments: json.RawMessage(`{"symbol":"AMZN","max_results":5}`)}
	args := call.ArgumentsMap()
	assert.Equal(t, "AMZN", args["symbol"])
	assert.Equal(t, float64(5), args["max_results"])

	// Malformed arguments degrade to an empty map, never a panic.
	broken := ToolCall{Arguments: json.RawMessage(`{not json`)}
	assert.NotNil(t, broken.ArgumentsMap())
	assert.Empty(t, broken.ArgumentsMap())
}
