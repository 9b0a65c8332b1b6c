package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckCarriesBuildInfo(t *testing.T) {
	health := NewHealthCheck("1.2.3")
	health.Commit = "abc1234"
	health.AddComponent("database", "healthy", "", nil)

	data, err := json.Marshal(health)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "1.2.3", decoded["version"])
	assert.Equal(t, "abc1234", decoded["commit"])
	assert.Equal(t, "healthy", decoded["status"])
}

func TestHealthCheckStatusEscalation(t *testing.T) {
	health := NewHealthCheck("dev")
	assert.Equal(t, "healthy", health.Status)

	health.AddComponent("database", "healthy", "", nil)
	assert.Equal(t, "healthy", health.Status)

	health.AddComponent("slack", "degraded", "auth test failed", nil)
	assert.Equal(t, "degraded", health.Status)

	// A later healthy component never improves the overall status.
	health.AddComponent("emoji_config", "healthy", "", nil)
	assert.Equal(t, "degraded", health.Status)

	health.AddComponent("database", "unhealthy", "connection refused", nil)
	assert.Equal(t, "unhealthy", health.Status)
}
