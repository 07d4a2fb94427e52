package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"phpclientgen/internal/parser"
	"phpclientgen/internal/types"
)

// Defaults for a freshly created project
const (
	DefaultNamespace = `App\Sdk\MyApiClient`
	DefaultBaseURI   = "https://jsonplaceholder.typicode.com"
	DefaultTokenVar  = "$apiToken"
)

// Config is a partial client description, produced by the assistant or read
// from a file. Absent fields leave the project untouched.
type Config struct {
	BaseURI   string            `json:"baseUri,omitempty" yaml:"baseUri,omitempty"`
	Namespace string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Auth      *types.AuthConfig `json:"authConfig,omitempty" yaml:"authConfig,omitempty"`
	Endpoints []types.Endpoint  `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Default returns a new project with bearer authentication and no endpoints
func Default(name string) *types.Project {
	return &types.Project{
		Name:      name,
		Namespace: DefaultNamespace,
		BaseURI:   DefaultBaseURI,
		Auth: types.AuthConfig{
			Method:            types.AuthBearer,
			TokenVariableName: DefaultTokenVar,
		},
		Endpoints: []types.Endpoint{},
		UpdatedAt: time.Now().UTC(),
	}
}

// Apply overwrites the project fields that cfg sets. Endpoints are replaced
// wholesale and get fresh IDs of the form <name>-<index>-<uuid>.
func Apply(p *types.Project, cfg Config) error {
	var endpoints []types.Endpoint
	if cfg.Endpoints != nil {
		endpoints = make([]types.Endpoint, 0, len(cfg.Endpoints))
		for i, ep := range cfg.Endpoints {
			normalized, err := normalizeEndpoint(ep)
			if err != nil {
				return fmt.Errorf("endpoint %d: %w", i, err)
			}
			normalized.ID = fmt.Sprintf("%s-%d-%s", normalized.Name, i, uuid.NewString())
			endpoints = append(endpoints, normalized)
		}
	}
	if cfg.Auth != nil && cfg.Auth.Method != "" && !validAuth(cfg.Auth.Method) {
		return fmt.Errorf("unknown auth method %q", cfg.Auth.Method)
	}

	if cfg.Namespace != "" {
		p.Namespace = cfg.Namespace
	}
	if cfg.BaseURI != "" {
		p.BaseURI = cfg.BaseURI
	}
	if cfg.Auth != nil {
		p.Auth = *cfg.Auth
		if p.Auth.Method == "" {
			p.Auth.Method = types.AuthNone
		}
	}
	if endpoints != nil {
		p.Endpoints = endpoints
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// ImportSpec replaces the project's endpoints with a parse result. The base
// URI is only taken over when the document declared one.
func ImportSpec(p *types.Project, res *parser.Result) {
	p.Endpoints = res.Endpoints
	if res.BaseURI != "" {
		p.BaseURI = strings.TrimRight(res.BaseURI, "/")
	}
	p.UpdatedAt = time.Now().UTC()
}

// SetPersistence updates the persistence settings of the named endpoint
func SetPersistence(p *types.Project, name string, cfg types.PersistenceConfig) error {
	i := p.FindEndpoint(name)
	if i < 0 {
		return fmt.Errorf("endpoint %q not found", name)
	}
	if cfg.DBType == "" {
		cfg.DBType = p.Endpoints[i].Persistence.DBType
	}
	if !cfg.DBType.Valid() {
		return fmt.Errorf("unknown database type %q", cfg.DBType)
	}
	if cfg.Enabled && cfg.TableName == "" {
		cfg.TableName = p.Endpoints[i].Persistence.TableName
	}
	if cfg.Enabled && cfg.TableName == "" {
		return fmt.Errorf("endpoint %q: a table name is required to enable persistence", name)
	}
	p.Endpoints[i].Persistence = cfg
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func normalizeEndpoint(ep types.Endpoint) (types.Endpoint, error) {
	if ep.Name == "" {
		return ep, fmt.Errorf("name is required")
	}
	method, ok := types.ParseHTTPMethod(string(ep.Method))
	if !ok {
		return ep, fmt.Errorf("%s: unsupported HTTP method %q", ep.Name, ep.Method)
	}
	ep.Method = method
	if ep.Persistence.DBType == "" {
		ep.Persistence.DBType = types.DatabaseMariaDB
	}
	if !ep.Persistence.DBType.Valid() {
		return ep, fmt.Errorf("%s: unknown database type %q", ep.Name, ep.Persistence.DBType)
	}
	return ep, nil
}

func validAuth(m types.AuthMethod) bool {
	switch m {
	case types.AuthNone, types.AuthBearer, types.AuthBasic, types.AuthQuery, types.AuthChained:
		return true
	}
	return false
}
