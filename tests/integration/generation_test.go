//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateContent(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("requires authentication", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("forwards provider payload", func(t *testing.T) {
		token := RegisterAndLogin(t, env, "gen-basic@example.com")

		resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		// Provider schema at the top level
		assert.Equal(t, "chatcmpl-integration", result["id"])
		assert.NotEmpty(t, result["choices"])
	})

	t.Run("client model is ignored", func(t *testing.T) {
		token := RegisterAndLogin(t, env, "gen-model@example.com")

		body := GenerateBody()
		body["model"] = "gpt-4-turbo"
		resp := DoRequest(t, env, "POST", "/generate-content", body, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		models := env.Provider.Models()
		require.NotEmpty(t, models)
		assert.Equal(t, "gpt-4o-mini", models[len(models)-1])
	})

	t.Run("missing messages rejected", func(t *testing.T) {
		token := RegisterAndLogin(t, env, "gen-empty@example.com")

		resp := DoRequest(t, env, "POST", "/generate-content", map[string]any{}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("versioned route serves the same handler", func(t *testing.T) {
		token := RegisterAndLogin(t, env, "gen-v1@example.com")

		resp := DoRequest(t, env, "POST", "/api/v1/ai/generate-content", GenerateBody(), token)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestGenerateContent_DailyCeiling(t *testing.T) {
	env := SetupTestEnv(t)
	token := RegisterAndLogin(t, env, "gen-quota@example.com")

	for i := 0; i < testDailyLimit; i++ {
		resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
		require.Equal(t, http.StatusOK, resp.StatusCode, "generation %d should succeed", i+1)
		resp.Body.Close()
	}

	resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	result := ParseResponse(t, resp)
	assert.Equal(t, "DAILY_LIMIT_REACHED", result["error"])
	assert.Equal(t, float64(testDailyLimit), result["limit"])
	assert.Equal(t, "tomorrow", result["reset"])

	// Another user's quota is untouched.
	otherToken := RegisterAndLogin(t, env, "gen-quota-other@example.com")
	otherResp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), otherToken)
	assert.Equal(t, http.StatusOK, otherResp.StatusCode)
}

func TestGenerateContent_RecordsEvents(t *testing.T) {
	env := SetupTestEnv(t)
	token := RegisterAndLogin(t, env, "gen-events@example.com")

	for i := 0; i < 2; i++ {
		resp := DoRequest(t, env, "POST", "/generate-content", GenerateBody(), token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	var count int
	err := env.Pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM generation_events WHERE user_id = (SELECT id FROM users WHERE email = $1)`,
		"gen-events@example.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Both events landed in a single monthly rollup row.
	var generations, tokens int
	err = env.Pool.QueryRow(context.Background(),
		`SELECT generation_count, total_tokens FROM usage_rollups WHERE user_id = (SELECT id FROM users WHERE email = $1)`,
		"gen-events@example.com").Scan(&generations, &tokens)
	require.NoError(t, err)
	assert.Equal(t, 2, generations)
	assert.Equal(t, 20, tokens)
}
