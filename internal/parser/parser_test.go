package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpclientgen/internal/document"
	"phpclientgen/internal/types"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 123000000, time.UTC)

func newTestParser() *SpecParser {
	return NewSpecParser(
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "id" }),
	)
}

const usersSpec = `{
  "openapi": "3.0.0",
  "servers": [{"url": "https://api.example.com/v1"}],
  "paths": {
    "/users": {
      "get": {
        "responses": {
          "200": {
            "content": {
              "application/json": {
                "schema": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "properties": {
                      "id": {"type": "integer"},
                      "name": {"type": "string"}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

func TestParse_OpenAPI3JSON(t *testing.T) {
	res, err := newTestParser().Parse(usersSpec)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", res.BaseURI)
	require.Len(t, res.Endpoints, 1)

	ep := res.Endpoints[0]
	assert.Equal(t, "getUsers", ep.Name)
	assert.Equal(t, types.MethodGet, ep.Method)
	assert.Equal(t, "/users", ep.Path)
	assert.Equal(t, "get-/users-id", ep.ID)
	assert.Equal(t, "[\n  {\n    \"id\": 0,\n    \"name\": \"string\"\n  }\n]", ep.SamplePayload)
	assert.Equal(t, types.DefaultPersistence(), ep.Persistence)
}

func TestParse_YAMLMatchesJSON(t *testing.T) {
	yamlSpec := `
openapi: 3.0.0
servers:
  - url: https://api.example.com/v1
paths:
  /users:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                type: array
                items:
                  type: object
                  properties:
                    id:
                      type: integer
                    name:
                      type: string
`
	fromJSON, err := newTestParser().Parse(usersSpec)
	require.NoError(t, err)
	fromYAML, err := newTestParser().Parse(yamlSpec)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
}

func TestParse_PathParameterAndEmail(t *testing.T) {
	spec := `
openapi: 3.0.0
paths:
  /users/{id}:
    get:
      responses:
        "200":
          content:
            application/json:
              schema:
                type: object
                properties:
                  email:
                    type: string
                    format: email
`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)
	require.Len(t, res.Endpoints, 1)

	assert.Equal(t, "getUsersId", res.Endpoints[0].Name)
	assert.Equal(t, "{\n  \"email\": \"user@example.com\"\n}", res.Endpoints[0].SamplePayload)
	assert.Equal(t, "", res.BaseURI)
}

func TestParse_Swagger2(t *testing.T) {
	spec := `{
  "swagger": "2.0",
  "paths": {
    "/items": {
      "post": {
        "operationId": "createItem",
        "responses": {
          "201": {"schema": {"type": "object", "properties": {"ok": {"type": "boolean"}}}}
        }
      }
    }
  }
}`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)
	require.Len(t, res.Endpoints, 1)

	ep := res.Endpoints[0]
	assert.Equal(t, "createItem", ep.Name)
	assert.Equal(t, types.MethodPost, ep.Method)
	assert.Equal(t, "{\n  \"ok\": true\n}", ep.SamplePayload)
}

func TestParse_FormatError(t *testing.T) {
	for _, input := range []string{
		"not: json: or: yaml: {{{",
		`{"openapi": "3.0.0",`,
		"[1, 2, 3]",
		"just a string",
		"",
	} {
		t.Run(input, func(t *testing.T) {
			res, err := newTestParser().Parse(input)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))
			assert.False(t, errors.Is(err, ErrStructure))
		})
	}
}

func TestParse_FormatErrorMentionsJSONWhenInputLooksLikeJSON(t *testing.T) {
	_, err := newTestParser().Parse(`{"a": [1, 2}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse input as JSON (")
}

func TestParse_StructureErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"missing ref", `{"paths":{"/a":{"get":{"responses":{"200":{"$ref":"#/components/responses/Nope"}}}}}}`},
		{"external ref", `{"paths":{"/a":{"$ref":"other.yaml#/paths/a"}}}`},
		{"paths not object", `{"paths":["/a"]}`},
		{"path item not object", `{"paths":{"/a":"oops"}}`},
		{"operation not object", `{"paths":{"/a":{"get":true}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestParser().Parse(tt.spec)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructure))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, StructureError, pe.Kind)
		})
	}
}

func TestParse_NoPaths(t *testing.T) {
	res, err := newTestParser().Parse(`{"openapi":"3.0.0","info":{"title":"x"}}`)
	require.NoError(t, err)
	assert.NotNil(t, res.Endpoints)
	assert.Empty(t, res.Endpoints)
}

func TestParse_OnlySupportedVerbsInDocumentOrder(t *testing.T) {
	spec := `
paths:
  /b:
    parameters: []
    delete: {}
    head: {}
    options: {}
    trace: {}
    get: {}
  /a:
    PATCH: {}
    put: {}
    post:
    summary: nope
`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)

	var got []string
	for _, ep := range res.Endpoints {
		got = append(got, string(ep.Method)+" "+ep.Path)
		assert.Empty(t, ep.SamplePayload)
	}
	assert.Equal(t, []string{"DELETE /b", "GET /b", "PATCH /a", "PUT /a"}, got)
}

func TestParse_ResolvesReferences(t *testing.T) {
	spec := `
openapi: 3.0.0
paths:
  /pets:
    get:
      responses:
        "200":
          $ref: "#/components/responses/PetList"
components:
  responses:
    PetList:
      content:
        application/json:
          schema:
            type: array
            items:
              $ref: "#/components/schemas/Pet"
  schemas:
    Pet:
      type: object
      properties:
        id:
          type: string
          format: uuid
        born:
          type: string
          format: date
`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)
	require.Len(t, res.Endpoints, 1)
	assert.Equal(t,
		"[\n  {\n    \"id\": \"00000000-0000-0000-0000-000000000000\",\n    \"born\": \"2024-05-06\"\n  }\n]",
		res.Endpoints[0].SamplePayload)
}

func TestParse_RecursiveSchemaTerminates(t *testing.T) {
	spec := `{
  "paths": {"/tree": {"get": {"responses": {"200": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/Node"}}}}}}}},
  "components": {"schemas": {"Node": {"type": "object", "properties": {"child": {"$ref": "#/components/schemas/Node"}}}}}
}`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)
	require.Len(t, res.Endpoints, 1)
	assert.Equal(t,
		"{\n  \"child\": {\n    \"note\": \"Could not resolve reference: #/components/schemas/Node\"\n  }\n}",
		res.Endpoints[0].SamplePayload)
}

func TestParse_SuccessResponseOrder(t *testing.T) {
	tests := []struct {
		name      string
		responses string
		want      string
	}{
		{
			"lowest numeric code wins over document order",
			`
        "201": {schema: {type: object, properties: {created: {type: boolean}}}}
        "200": {schema: {type: object, properties: {id: {type: integer}}}}`,
			"{\n  \"id\": 0\n}",
		},
		{
			"numeric codes before patterns",
			`
        2XX: {schema: {type: string}}
        "204": {schema: {type: integer}}`,
			"0",
		},
		{
			"first pattern when no numeric code",
			`
        2XX: {schema: {type: string}}
        2xx: {schema: {type: integer}}
        "400": {schema: {type: boolean}}`,
			`"string"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestParser().Parse(`
paths:
  /things:
    get:
      responses:` + tt.responses + "\n")
			require.NoError(t, err)
			require.Len(t, res.Endpoints, 1)
			assert.Equal(t, tt.want, res.Endpoints[0].SamplePayload)
		})
	}
}

func TestParse_ExplodingReferencesFail(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"paths":{"/tree":{"get":{"responses":{"200":{"schema":{"$ref":"#/definitions/T0"}}}}}},"definitions":{`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, `"T%d":{"type":"object","properties":{"l":{"$ref":"#/definitions/T%d"},"r":{"$ref":"#/definitions/T%d"}}},`, i, i+1, i+1)
	}
	b.WriteString(`"T40":{"type":"integer"}}}`)

	start := time.Now()
	_, err := newTestParser().Parse(b.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStructure)
	assert.ErrorIs(t, err, document.ErrNodeLimit)
	assert.Less(t, time.Since(start), 30*time.Second)
}

func TestParse_DuplicateNamesAreSuffixed(t *testing.T) {
	spec := `
paths:
  /users:
    get:
      operationId: listUsers
  /people:
    get:
      operationId: listUsers
  /users/:
    get: {}
  /Users:
    get: {}
`
	res, err := newTestParser().Parse(spec)
	require.NoError(t, err)

	var names []string
	for _, ep := range res.Endpoints {
		names = append(names, ep.Name)
	}
	assert.Equal(t, []string{"listUsers", "listUsers2", "getUsers", "getUsers2"}, names)
}

func TestParse_IsDeterministic(t *testing.T) {
	p := newTestParser()
	first, err := p.Parse(usersSpec)
	require.NoError(t, err)
	second, err := p.Parse(usersSpec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParse_DefaultIDsAreUnique(t *testing.T) {
	p := NewSpecParser()
	a, err := p.Parse(usersSpec)
	require.NoError(t, err)
	b, err := p.Parse(usersSpec)
	require.NoError(t, err)
	assert.NotEqual(t, a.Endpoints[0].ID, b.Endpoints[0].ID)
	assert.Contains(t, a.Endpoints[0].ID, "get-/users-")
}

func TestSynthesizeName(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"GET", "/users", "getUsers"},
		{"GET", "/users/{id}", "getUsersId"},
		{"POST", "/api/v1/order-items", "postApiV1Orderitems"},
		{"DELETE", "/", "delete"},
		{"PATCH", "//USERS//{userId}/", "patchUsersUserid"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SynthesizeName(tt.method, tt.path))
		})
	}
}

func TestSample(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{"example wins", `{"type":"string","example":"hello"}`, `"hello"`},
		{"default", `{"type":"integer","default":5}`, `5`},
		{"null example ignored", `{"type":"boolean","example":null}`, `true`},
		{"date-time", `{"type":"string","format":"date-time"}`, `"2024-05-06T07:08:09.123Z"`},
		{"float", `{"type":"number","format":"double"}`, `0`},
		{"number", `{"type":"number"}`, `0`},
		{"type list", `{"type":["integer","null"]}`, `0`},
		{"untyped properties", `{"properties":{"a":{"type":"string"}}}`, `{"a":"string"}`},
		{"untyped items", `{"items":{"type":"boolean"}}`, `[true]`},
		{"array without items", `{"type":"array"}`, `[]`},
		{"unknown", `{"description":"anything"}`, `{}`},
		{"null type", `{"type":"null"}`, `null`},
		{"ref note", `{"$ref":"#/x"}`, `{"note":"Could not resolve reference: #/x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := document.DecodeJSON([]byte(tt.schema))
			require.NoError(t, err)
			out, err := Sample(schema, fixedNow).MarshalJSON()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}

	assert.True(t, Sample(nil, fixedNow).IsNull())
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	findings, err := Validate(ctx, `{
  "openapi": "3.0.0",
  "info": {"title": "Users", "version": "1.0.0"},
  "paths": {"/users": {"get": {"responses": {"200": {"description": "ok"}}}}}
}`)
	require.NoError(t, err)
	assert.Empty(t, findings)

	findings, err = Validate(ctx, `{
  "openapi": "3.0.0",
  "paths": {"/users": {"get": {"responses": {"200": {"description": "ok"}}}}}
}`)
	require.NoError(t, err)
	assert.NotEmpty(t, findings)

	_, err = Validate(ctx, "not: json: or: yaml: {{{")
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestValidate_Swagger2(t *testing.T) {
	findings, err := Validate(context.Background(), `
swagger: "2.0"
info:
  title: Items
  version: "1"
paths:
  /items:
    get:
      responses:
        "200":
          description: ok
`)
	require.NoError(t, err)
	assert.Empty(t, findings)
}
