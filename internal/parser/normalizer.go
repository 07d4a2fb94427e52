package parser

import (
	"bytes"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"phpclientgen/internal/document"
	"phpclientgen/internal/logger"
	"phpclientgen/internal/types"
)

// Result is the normalized form of a specification document
type Result struct {
	Endpoints []types.Endpoint `json:"endpoints"`
	BaseURI   string           `json:"baseUri"`
}

// SpecParser turns OpenAPI 3.x / Swagger 2.0 documents into endpoint records.
// It keeps no state between calls and is safe for concurrent use.
type SpecParser struct {
	now    func() time.Time
	newID  func() string
	logger *logger.Logger
}

// Option configures a SpecParser
type Option func(*SpecParser)

// WithClock overrides the time source used for date samples
func WithClock(now func() time.Time) Option {
	return func(p *SpecParser) { p.now = now }
}

// WithIDGenerator overrides the suffix generator for endpoint IDs
func WithIDGenerator(newID func() string) Option {
	return func(p *SpecParser) { p.newID = newID }
}

// WithLogger attaches a logger for per-endpoint debug output
func WithLogger(l *logger.Logger) Option {
	return func(p *SpecParser) { p.logger = l.WithComponent("parser") }
}

// NewSpecParser creates a new instance of SpecParser
func NewSpecParser(opts ...Option) *SpecParser {
	p := &SpecParser{
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse normalizes raw specification text. It fails atomically with a
// *ParseError of kind FormatError or StructureError; a document without
// operations is not an error and yields an empty endpoint list.
func (p *SpecParser) Parse(raw string) (*Result, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}

	api, err := document.Resolve(doc)
	if err != nil {
		return nil, structureError("failed to parse OpenAPI specification", err)
	}

	endpoints, err := p.extractEndpoints(api)
	if err != nil {
		return nil, err
	}

	return &Result{
		Endpoints: endpoints,
		BaseURI:   serverURL(api),
	}, nil
}

// decodeDocument tries strict JSON first and falls back to YAML.
func decodeDocument(raw string) (*document.Value, error) {
	doc, jsonErr := document.DecodeJSON([]byte(raw))
	if jsonErr == nil {
		if doc.Kind() != document.Map {
			return nil, formatError("JSON did not parse to a valid object", nil)
		}
		return doc, nil
	}

	doc, yamlErr := document.DecodeYAML([]byte(raw))
	if yamlErr != nil {
		msg := "could not parse input as JSON or YAML"
		if looksLikeJSON(raw) {
			msg = fmt.Sprintf("could not parse input as JSON (%v) or YAML", jsonErr)
		}
		return nil, formatError(msg, yamlErr)
	}
	if doc.Kind() != document.Map {
		return nil, formatError("YAML did not parse to a valid object", nil)
	}
	return doc, nil
}

func looksLikeJSON(raw string) bool {
	trimmed := bytes.TrimLeft([]byte(raw), " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// serverURL returns servers[0].url, or "" when no server is declared.
func serverURL(api *document.Value) string {
	servers := api.Get("servers").Items()
	if len(servers) == 0 {
		return ""
	}
	url, _ := servers[0].Get("url").Str()
	return url
}

// extractEndpoints walks paths and methods in document order
func (p *SpecParser) extractEndpoints(api *document.Value) ([]types.Endpoint, error) {
	endpoints := make([]types.Endpoint, 0)

	paths := api.Get("paths")
	if paths.IsNull() {
		return endpoints, nil
	}
	if paths.Kind() != document.Map {
		return nil, structureError("failed to parse OpenAPI specification",
			fmt.Errorf("paths must be an object, got %s", paths.Kind()))
	}

	now := p.now()
	used := make(map[string]bool)

	for _, pathMember := range paths.Members() {
		path, item := pathMember.Key, pathMember.Value
		if item.IsNull() {
			continue
		}
		if item.Kind() != document.Map {
			return nil, structureError("failed to parse OpenAPI specification",
				fmt.Errorf("path item %q must be an object, got %s", path, item.Kind()))
		}

		for _, opMember := range item.Members() {
			method, ok := types.ParseHTTPMethod(opMember.Key)
			if !ok {
				continue
			}
			op := opMember.Value
			if op.IsNull() {
				continue
			}
			if op.Kind() != document.Map {
				return nil, structureError("failed to parse OpenAPI specification",
					fmt.Errorf("operation %s %s must be an object, got %s", method, path, op.Kind()))
			}

			payload, err := successPayload(op, now)
			if err != nil {
				return nil, structureError("failed to parse OpenAPI specification",
					fmt.Errorf("operation %s %s: %w", method, path, err))
			}

			name := uniqueName(used, operationName(op, method, path))
			endpoint := types.Endpoint{
				ID:            fmt.Sprintf("%s-%s-%s", strings.ToLower(string(method)), path, p.newID()),
				Name:          name,
				Method:        method,
				Path:          path,
				SamplePayload: payload,
				Persistence:   types.DefaultPersistence(),
			}
			endpoints = append(endpoints, endpoint)

			p.logger.Event(logger.DebugLevel).
				Str("method", string(method)).
				Str("path", path).
				Str("name", name).
				Bool("sample", payload != "").
				Msg("extracted endpoint")
		}
	}

	return endpoints, nil
}

// successResponse picks the first 2xx response. Numeric codes come first in
// ascending order, then patterns such as 2XX in document order.
func successResponse(responses *document.Value) *document.Value {
	var (
		best     *document.Value
		bestCode uint64
		pattern  *document.Value
	)
	for _, m := range responses.Members() {
		if !strings.HasPrefix(m.Key, "2") {
			continue
		}
		code, err := strconv.ParseUint(m.Key, 10, 32)
		if err != nil || code == math.MaxUint32 {
			if pattern == nil {
				pattern = m.Value
			}
			continue
		}
		if best == nil || code < bestCode {
			best, bestCode = m.Value, code
		}
	}
	if best != nil {
		return best
	}
	return pattern
}

// successPayload synthesizes the formatted sample for the first 2xx response
func successPayload(op *document.Value, now time.Time) (string, error) {
	response := successResponse(op.Get("responses"))
	if response.Kind() != document.Map {
		return "", nil
	}

	var schema *document.Value
	if media := response.Get("content").Get("application/json"); media != nil {
		schema = media.Get("schema")
	} else {
		schema = response.Get("schema")
	}
	if schema.IsNull() {
		return "", nil
	}

	sample := Sample(schema, now)
	if sample.IsNull() {
		return "", nil
	}
	return sample.Indent()
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// operationName returns the declared operationId or synthesizes one from method and path
func operationName(op *document.Value, method types.HTTPMethod, path string) string {
	if id, ok := op.Get("operationId").Scalar(); ok && id != "" {
		return id
	}
	return SynthesizeName(string(method), path)
}

// SynthesizeName builds a method name such as getUsersId from GET /users/{id}.
func SynthesizeName(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	cleaned := strings.NewReplacer("{", "", "}", "").Replace(strings.ToLower(path))
	for _, segment := range strings.Split(cleaned, "/") {
		if segment == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(segment)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(segment[size:])
	}

	return nonAlphanumeric.ReplaceAllString(b.String(), "")
}

// uniqueName appends 2, 3, ... to names already handed out in this parse
func uniqueName(used map[string]bool, name string) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = name + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}
