package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"phpclientgen/internal/types"
)

func endpoint(name string, method types.HTTPMethod, path, payload string) types.Endpoint {
	return types.Endpoint{
		ID:            name,
		Name:          name,
		Method:        method,
		Path:          path,
		SamplePayload: payload,
		Persistence:   types.DefaultPersistence(),
	}
}

func TestSnakeToPascal(t *testing.T) {
	tests := map[string]string{
		"users":        "Users",
		"user_profile": "UserProfile",
		"UsersId":      "UsersId",
		"a_b_c":        "ABC",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SnakeToPascal(in), in)
	}
}

func TestMethodSignature(t *testing.T) {
	tests := []struct {
		name string
		ep   types.Endpoint
		want string
	}{
		{"get without params", endpoint("getUsers", types.MethodGet, "/users", ""), "array $queryParams = []"},
		{"get with params", endpoint("getUser", types.MethodGet, "/users/{id}/posts/{postId}", ""), "string $id, string $postId, array $queryParams = []"},
		{"post", endpoint("createUser", types.MethodPost, "/users", ""), "array $body = []"},
		{"patch with param", endpoint("updateUser", types.MethodPatch, "/users/{id}", ""), "string $id, array $body = []"},
		{"delete", endpoint("deleteUser", types.MethodDelete, "/users/{id}", ""), "string $id, array $queryParams = []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MethodSignature(tt.ep))
		})
	}
}

func TestBuild_DTOsAndReturnTypes(t *testing.T) {
	out := Build(Params{
		Auth:      types.AuthConfig{Method: types.AuthNone},
		Namespace: `App\Sdk\Users`,
		BaseURI:   "https://api.example.com",
		Endpoints: []types.Endpoint{
			endpoint("getUsers", types.MethodGet, "/users", "[\n  {\n    \"id\": 0\n  }\n]"),
			endpoint("getUsersId", types.MethodGet, "/users/{id}", "{\n  \"id\": 0\n}"),
			endpoint("deleteUser", types.MethodDelete, "/users/{id}", ""),
		},
	})

	assert.Contains(t, out, "- Use the namespace `App\\\\Sdk\\\\Users`.")
	assert.Contains(t, out, "## Section 2: Data Transfer Objects (DTOs)")
	assert.Contains(t, out, "### DTO Class: UsersItem")
	assert.Contains(t, out, "- JSON for `UsersItem`: ```json\n{\n  \"id\": 0\n}\n```")
	assert.Contains(t, out, "### DTO Class: UsersId")
	assert.Contains(t, out, "`public function getUsers(array $queryParams = [])`")
	assert.Contains(t, out, "The method MUST return a value of type `array<UsersItem>`.")
	assert.Contains(t, out, "`public function deleteUser(string $id, array $queryParams = [])`")
	assert.Contains(t, out, "The method MUST return a value of type `array`.")
	assert.Contains(t, out, "The base URI is `https://api.example.com`.")
	assert.Contains(t, out, "No authentication is required.")
	assert.NotContains(t, out, "Section 4")
}

func TestBuild_NoPayloadsSkipsDTOSection(t *testing.T) {
	out := Build(Params{Endpoints: []types.Endpoint{endpoint("ping", types.MethodGet, "/ping", "")}})
	assert.NotContains(t, out, "Section 2")
	assert.Contains(t, out, "## Section 3: API Client Class")
}

func TestBuild_DuplicateDTONameEmittedOnce(t *testing.T) {
	out := Build(Params{Endpoints: []types.Endpoint{
		endpoint("getUser", types.MethodGet, "/a", `{"id":1}`),
		endpoint("getsUser", types.MethodGet, "/b", `{"id":2}`),
	}})
	assert.Equal(t, 1, strings.Count(out, "### DTO Class: User\n"))
}

func TestBuild_AuthSections(t *testing.T) {
	tests := []struct {
		name string
		auth types.AuthConfig
		want []string
	}{
		{
			"bearer",
			types.AuthConfig{Method: types.AuthBearer, TokenVariableName: "$apiToken"},
			[]string{"Bearer Token authentication", "(e.g., `$apiToken`)"},
		},
		{
			"basic",
			types.AuthConfig{Method: types.AuthBasic, UsernameVariableName: "$user", PasswordVariableName: "$pass"},
			[]string{"Basic authentication", "`$user`, `$pass`"},
		},
		{
			"query",
			types.AuthConfig{Method: types.AuthQuery, QueryKeyName: "api_key", QueryValueName: "$apiKey"},
			[]string{"`api_key=<key>`", "`$apiKey`"},
		},
		{
			"chained",
			types.AuthConfig{
				Method:              types.AuthChained,
				TokenEndpointPath:   "/oauth/token",
				TokenEndpointMethod: types.MethodPost,
				RequestBody:         `{"grant_type":"client_credentials"}`,
				TokenPathInResponse: "data.access_token",
				SchemeInHeader:      "Bearer",
			},
			[]string{"sends a POST request to `/oauth/token`", "`data.access_token`", "'Authorization: Bearer <token>'"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Build(Params{Auth: tt.auth})
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestBuild_DatabaseHandler(t *testing.T) {
	pg := endpoint("getUsers", types.MethodGet, "/users", `[{"id":1}]`)
	pg.Persistence = types.PersistenceConfig{Enabled: true, DBType: types.DatabasePostgreSQL, TableName: "users"}

	maria := endpoint("getOrder", types.MethodGet, "/orders/{id}", `{"id":1}`)
	maria.Persistence = types.PersistenceConfig{Enabled: true, DBType: types.DatabaseMariaDB, TableName: "orders"}

	noPayload := endpoint("deleteOrder", types.MethodDelete, "/orders/{id}", "")
	noPayload.Persistence = types.PersistenceConfig{Enabled: true, DBType: types.DatabaseSQLite, TableName: "orders"}

	out := Build(Params{
		Endpoints: []types.Endpoint{pg, maria, noPayload},
		Tables:    map[string][]string{"orders": {"id", "total_amount"}},
	})

	assert.Contains(t, out, "## Section 4: Database Handler Class")
	assert.Contains(t, out, "### Method: saveUsersItem")
	assert.Contains(t, out, "`UsersItem $dto`")
	assert.Contains(t, out, "ON CONFLICT(id) DO UPDATE SET")
	assert.Contains(t, out, "### Method: saveOrder")
	assert.Contains(t, out, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, out, "exactly these columns: `id`, `total_amount`")
	assert.NotContains(t, out, "saveDeleteOrder")
}

func TestUpsertClause(t *testing.T) {
	assert.Contains(t, UpsertClause(types.DatabaseSQLite), "ON CONFLICT")
	assert.Contains(t, UpsertClause(types.DatabasePostgreSQL), "ON CONFLICT")
	assert.Contains(t, UpsertClause(types.DatabaseMariaDB), "ON DUPLICATE KEY")
}

func TestConfigSystemInstruction(t *testing.T) {
	assert.Contains(t, ConfigSystemInstruction, "```json markdown block")
	assert.Contains(t, ConfigSystemInstruction, "`baseUri`, `namespace`, `authConfig`, and `endpoints`")
}
