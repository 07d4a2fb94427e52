package types

import (
	"strings"
	"time"
)

// HTTPMethod is one of the verbs a generated client method can use
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

// HTTPMethods lists the supported verbs in display order
var HTTPMethods = []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// ParseHTTPMethod returns the supported verb matching s, ignoring case
func ParseHTTPMethod(s string) (HTTPMethod, bool) {
	for _, m := range HTTPMethods {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}

// HasBody reports whether requests with this verb carry a JSON body
func (m HTTPMethod) HasBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// DatabaseType is the storage engine an endpoint's payload is persisted to
type DatabaseType string

const (
	DatabaseMariaDB    DatabaseType = "mariadb"
	DatabasePostgreSQL DatabaseType = "postgresql"
	DatabaseSQLite     DatabaseType = "sqlite"
)

// Valid reports whether t is a known database type
func (t DatabaseType) Valid() bool {
	switch t {
	case DatabaseMariaDB, DatabasePostgreSQL, DatabaseSQLite:
		return true
	}
	return false
}

// PersistenceConfig describes where the generated DB handler stores an endpoint's payload
type PersistenceConfig struct {
	Enabled   bool         `json:"enabled" yaml:"enabled"`
	DBType    DatabaseType `json:"dbType" yaml:"dbType"`
	TableName string       `json:"tableName" yaml:"tableName"`
}

// DefaultPersistence returns the disabled configuration every new endpoint starts with
func DefaultPersistence() PersistenceConfig {
	return PersistenceConfig{
		Enabled:   false,
		DBType:    DatabaseMariaDB,
		TableName: "",
	}
}

// Endpoint represents one operation of the target API
type Endpoint struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Method        HTTPMethod        `json:"method" yaml:"method"`
	Path          string            `json:"path" yaml:"path"`
	SamplePayload string            `json:"responsePayload,omitempty" yaml:"responsePayload,omitempty"`
	Persistence   PersistenceConfig `json:"dbConfig" yaml:"dbConfig"`
}

// AuthMethod selects how the generated client authenticates
type AuthMethod string

const (
	AuthNone    AuthMethod = "none"
	AuthBearer  AuthMethod = "bearer"
	AuthBasic   AuthMethod = "basic"
	AuthQuery   AuthMethod = "query"
	AuthChained AuthMethod = "chained"
)

// AuthConfig holds the authentication settings; only the fields of the selected method are used
type AuthConfig struct {
	Method AuthMethod `json:"method" yaml:"method"`

	// Bearer
	TokenVariableName string `json:"tokenVariableName,omitempty" yaml:"tokenVariableName,omitempty"`

	// Basic
	UsernameVariableName string `json:"usernameVariableName,omitempty" yaml:"usernameVariableName,omitempty"`
	PasswordVariableName string `json:"passwordVariableName,omitempty" yaml:"passwordVariableName,omitempty"`

	// Query
	QueryKeyName   string `json:"queryKeyName,omitempty" yaml:"queryKeyName,omitempty"`
	QueryValueName string `json:"queryValueName,omitempty" yaml:"queryValueName,omitempty"`

	// Chained
	TokenEndpointPath   string     `json:"tokenEndpointPath,omitempty" yaml:"tokenEndpointPath,omitempty"`
	TokenEndpointMethod HTTPMethod `json:"tokenEndpointMethod,omitempty" yaml:"tokenEndpointMethod,omitempty"`
	RequestBody         string     `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	TokenPathInResponse string     `json:"tokenPathInResponse,omitempty" yaml:"tokenPathInResponse,omitempty"`
	SchemeInHeader      string     `json:"schemeInHeader,omitempty" yaml:"schemeInHeader,omitempty"`
}

// Project is the full client description a user builds up between commands
type Project struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace"`
	BaseURI   string     `json:"baseUri"`
	Auth      AuthConfig `json:"authConfig"`
	Endpoints []Endpoint `json:"endpoints"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// FindEndpoint returns the index of the first endpoint named name, or -1
func (p *Project) FindEndpoint(name string) int {
	for i, ep := range p.Endpoints {
		if ep.Name == name {
			return i
		}
	}
	return -1
}
