package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"diversity_platform/reporting/auth"
	"diversity_platform/reporting/gql"
	"diversity_platform/reporting/schema"
	"diversity_platform/reporting/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminUsername = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

type testEnv struct {
	db  *gorm.DB
	api chi.Router
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(schema.AllModels()...))

	auth.ResetBlankSlateForTest()
	t.Cleanup(auth.ResetBlankSlateForTest)

	auditLog := auth.NewAuditLogger(new(bytes.Buffer))

	userAuth, err := auth.NewBasicIdentityProvider(db, auditLog, auth.BasicProviderArgs{
		Secret:        []byte("290zcv02ai249"),
		AdminUsername: adminUsername,
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	})
	require.NoError(t, err)

	userService := services.NewUserService(db, userAuth)
	gqlService, err := gql.NewService(db, userAuth, auditLog)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/auth", userService.Routes())
	r.Mount("/api/graphql", gqlService.Routes())

	return &testEnv{db: db, api: r}
}

// initialized puts the environment past first-run setup so that blank-slate
// access no longer applies.
func (env *testEnv) initialized(t *testing.T) *testEnv {
	require.NoError(t, env.db.Create(&schema.Organization{Id: uuid.New(), Name: "acme"}).Error)
	auth.MarkInitialized()
	return env
}

type client struct {
	t     *testing.T
	api   chi.Router
	token string
}

func (env *testEnv) client(t *testing.T) *client {
	return &client{t: t, api: env.api}
}

func (c *client) post(path string, body interface{}, dest interface{}) int {
	data, err := json.Marshal(body)
	require.NoError(c.t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.api.ServeHTTP(w, req)

	if w.Code == http.StatusOK && dest != nil {
		require.NoError(c.t, json.NewDecoder(w.Body).Decode(dest))
	}
	return w.Code
}

func (c *client) login(email, password string) {
	var res struct {
		AccessToken string `json:"access_token"`
	}
	code := c.post("/api/auth/login", map[string]string{"email": email, "password": password}, &res)
	require.Equal(c.t, http.StatusOK, code)
	c.token = res.AccessToken
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   map[string]interface{} `json:"data"`
	Errors []gqlError             `json:"errors"`
}

func (c *client) graphql(query string, variables map[string]interface{}) gqlResponse {
	var res gqlResponse
	code := c.post("/api/graphql", map[string]interface{}{"query": query, "variables": variables}, &res)
	require.Equal(c.t, http.StatusOK, code)
	return res
}

// mustGraphql fails the test if execution reported any error.
func (c *client) mustGraphql(query string, variables map[string]interface{}) map[string]interface{} {
	res := c.graphql(query, variables)
	require.Empty(c.t, res.Errors)
	return res.Data
}

func field(t *testing.T, data map[string]interface{}, path ...string) interface{} {
	var current interface{} = data
	for _, key := range path {
		obj, ok := current.(map[string]interface{})
		require.True(t, ok, "expected object at %v", key)
		current = obj[key]
	}
	return current
}

func fieldString(t *testing.T, data map[string]interface{}, path ...string) string {
	value, ok := field(t, data, path...).(string)
	require.True(t, ok, "expected string at %v", path)
	return value
}
