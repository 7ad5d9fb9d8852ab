//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/scribeflow/scribeflow/internal/api"
	"github.com/scribeflow/scribeflow/internal/auth"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/documents"
	"github.com/scribeflow/scribeflow/internal/generation"
	"github.com/scribeflow/scribeflow/internal/projects"
	"github.com/scribeflow/scribeflow/internal/usage"
	"github.com/scribeflow/scribeflow/internal/users"
)

const testDailyLimit = 25

// fakeProvider stands in for the model provider. It records the model of
// every request it receives and answers with a fixed completion.
type fakeProvider struct {
	mu     sync.Mutex
	models []string
}

func (f *fakeProvider) handler(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.models = append(f.models, req.Model)
	f.mu.Unlock()

	json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:    "chatcmpl-integration",
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "generated continuation text"}},
		},
		Usage: openai.Usage{TotalTokens: 10},
	})
}

func (f *fakeProvider) Models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.models...)
}

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Provider    *fakeProvider
	AuthSvc     *auth.Service
	UserSvc     *users.Service
}

var (
	testEnv   *TestEnv
	teardowns []func()
)

// SetupTestEnv returns the package-wide environment built by TestMain.
// The containers live for the whole run, so tests in any order share them.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv == nil {
		t.Fatal("integration environment not initialized; TestMain did not run setupEnv")
	}
	return testEnv
}

func setupEnv() error {
	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "scribeflow_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("starting postgres container: %w", err)
	}
	teardowns = append(teardowns, func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("starting redis container: %w", err)
	}
	teardowns = append(teardowns, func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/scribeflow_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	teardowns = append(teardowns, pool.Close)

	// Run migrations
	migrationsPath, err := getMigrationsPath()
	if err != nil {
		return err
	}
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	teardowns = append(teardowns, func() { redisClient.Close() })

	// Fake model provider
	provider := &fakeProvider{}
	providerSrv := httptest.NewServer(http.HandlerFunc(provider.handler))
	teardowns = append(teardowns, providerSrv.Close)

	// Setup services
	jwtManager := auth.NewJWTManager("test-access-secret-32-chars-long!!", "test-refresh-secret-32-chars-long!!", 15*time.Minute, 7*24*time.Hour)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	projectRepo := projects.NewRepository(pool)
	projectSvc := projects.NewService(projectRepo)
	projectHandler := projects.NewHandler(projectSvc)

	documentRepo := documents.NewRepository(pool)
	documentSvc := documents.NewService(documentRepo)
	documentHandler := documents.NewHandler(documentSvc)

	usageRepo := usage.NewRepository(pool)
	usageSvc := usage.NewService(usageRepo, usageRepo, testDailyLimit)
	usageHandler := usage.NewHandler(usageSvc)

	upstream := generation.NewOpenAIClient(config.UpstreamConfig{
		APIKey:  "test-key",
		BaseURL: providerSrv.URL + "/v1",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	})
	// No NATS in the test env: rollups are applied in-line.
	generationSvc := generation.NewService(upstream, usageRepo, usageRepo, nil, nil, testDailyLimit, 0)
	generationHandler := generation.NewHandler(generationSvc)

	router := api.NewRouter(pool, nil, api.RouterConfig{
		CORSAllowedOrigins: []string{"*"},
	}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GenerateContent: generationHandler.GenerateContent,

		CreateProject:       projectHandler.Create,
		ListProjects:        projectHandler.List,
		GetProject:          projectHandler.Get,
		UpdateProject:       projectHandler.Update,
		DeleteProject:       projectHandler.Delete,
		OwnershipMiddleware: projectHandler.OwnershipMiddleware,

		CreateDocument: documentHandler.Create,
		ListDocuments:  documentHandler.List,
		GetDocument:    documentHandler.Get,
		UpdateDocument: documentHandler.Update,
		DeleteDocument: documentHandler.Delete,

		GetQuota:    usageHandler.GetQuota,
		ListRollups: usageHandler.ListRollups,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	server := httptest.NewServer(router)
	teardowns = append(teardowns, server.Close)

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Provider:    provider,
		AuthSvc:     authSvc,
		UserSvc:     userSvc,
	}

	return nil
}

func teardownEnv() {
	for i := len(teardowns) - 1; i >= 0; i-- {
		teardowns[i]()
	}
	teardowns = nil
	testEnv = nil
}

func getMigrationsPath() (string, error) {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found")
}

// Helper functions

func RegisterUser(t *testing.T, env *TestEnv, email, password string) map[string]any {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: status %d", resp.StatusCode)
	}
	return ParseResponse(t, resp)
}

func RegisterAndLogin(t *testing.T, env *TestEnv, email string) string {
	t.Helper()
	result := RegisterUser(t, env, email, "password123")
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func LoginUser(t *testing.T, env *TestEnv, email, password string) string {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

func GenerateBody() map[string]any {
	return map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "continue this paragraph"},
		},
	}
}
