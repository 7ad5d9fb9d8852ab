//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaEndpoint(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("requires authentication", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/usage/quota", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("counts down as generations happen", func(t *testing.T) {
		token := RegisterAndLogin(t, env, "quota-view@example.com")

		resp := DoRequest(t, env, "GET", "/api/v1/usage/quota", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, float64(testDailyLimit), data["limit"])
		assert.Equal(t, float64(0), data["used"])
		assert.Equal(t, float64(testDailyLimit), data["remaining"])
		assert.NotEmpty(t, data["resets_at"])

		genResp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
		require.Equal(t, http.StatusOK, genResp.StatusCode)
		genResp.Body.Close()

		resp = DoRequest(t, env, "GET", "/api/v1/usage/quota", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		result = ParseResponse(t, resp)
		data = result["data"].(map[string]any)
		assert.Equal(t, float64(1), data["used"])
		assert.Equal(t, float64(testDailyLimit-1), data["remaining"])
	})
}

func TestRollupsEndpoint(t *testing.T) {
	env := SetupTestEnv(t)

	token := RegisterAndLogin(t, env, "rollups-view@example.com")

	t.Run("empty before any generation", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/usage/rollups", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		assert.Empty(t, result["data"])
		assert.Equal(t, float64(0), result["total_count"])
	})

	t.Run("one row for the current month", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}

		resp := DoRequest(t, env, "GET", "/api/v1/usage/rollups", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		rows := result["data"].([]any)
		require.Len(t, rows, 1)

		row := rows[0].(map[string]any)
		assert.Equal(t, float64(3), row["generation_count"])
		assert.Equal(t, float64(30), row["total_tokens"])
	})
}
