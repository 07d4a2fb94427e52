package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"phpclientgen/internal/document"
	"phpclientgen/internal/types"
)

// Params holds everything the client generation prompt is built from
type Params struct {
	Auth      types.AuthConfig
	Endpoints []types.Endpoint
	BaseURI   string
	Namespace string
	// Tables maps a table name to its probed column names, if any
	Tables map[string][]string
}

var (
	snakeWord = regexp.MustCompile(`(^\w|_\w)`)
	getPrefix = regexp.MustCompile(`^gets?`)
	pathParam = regexp.MustCompile(`\{(\w+)\}`)
)

// SnakeToPascal upper-cases the first character and every character after an underscore
func SnakeToPascal(s string) string {
	return snakeWord.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(strings.Replace(m, "_", "", 1))
	})
}

// dtoPlan is the DTO naming decided for one endpoint
type dtoPlan struct {
	name       string
	returnType string
	isList     bool
}

// planDTO derives DTO name and return type from an endpoint name and payload
func planDTO(ep types.Endpoint) dtoPlan {
	base := SnakeToPascal(getPrefix.ReplaceAllString(ep.Name, ""))
	if strings.HasPrefix(strings.TrimSpace(ep.SamplePayload), "[") {
		name := base + "Item"
		return dtoPlan{name: name, returnType: "array<" + name + ">", isList: true}
	}
	return dtoPlan{name: base, returnType: base}
}

// Build assembles the full code generation prompt
func Build(p Params) string {
	dtoSection, returns := dtoSection(p.Endpoints)
	endpointsSection := endpointsSection(p.Endpoints, returns)
	dbSection := dbHandlerSection(p.Endpoints, returns, p.Tables)
	safeNamespace := strings.ReplaceAll(p.Namespace, `\`, `\\`)

	var b strings.Builder
	b.WriteString("\nYou are an expert PHP developer creating a modern, PSR-compliant API client.\n")
	b.WriteString("Generate a complete, single PHP file. The output MUST be only valid PHP code. Do NOT add any other text or markdown like ```php.\n\n")
	b.WriteString("**PHP Standards:**\n")
	b.WriteString("- PHP 8.1+ compatibility.\n")
	b.WriteString("- `declare(strict_types=1);`.\n")
	b.WriteString("- PSR-12 style.\n")
	b.WriteString("- Use PSR-3 (Logger), PSR-7 (HTTP Messages), PSR-17 (HTTP Factories), PSR-18 (HTTP Client).\n")
	fmt.Fprintf(&b, "- Use the namespace `%s`.\n\n", safeNamespace)
	b.WriteString("---\n\n**FILE STRUCTURE:**\n\n")
	b.WriteString("## Section 1: Exception Class\n")
	b.WriteString("- Define a custom exception `ApiClientException extends \\RuntimeException`.\n\n")
	if dtoSection != "" {
		b.WriteString("## Section 2: Data Transfer Objects (DTOs)\n")
		b.WriteString(dtoSection)
	}
	b.WriteString("\n\n")
	b.WriteString(endpointsSection)
	fmt.Fprintf(&b, "\n  - **Base URI:** The base URI is `%s`.\n", p.BaseURI)
	fmt.Fprintf(&b, "  - **Authentication:** %s\n", authSection(p.Auth))
	b.WriteString("  - **Error Handling:** Throw `ApiClientException` on non-2xx HTTP status codes.\n")
	b.WriteString("  - **Logging:** Use the injected PSR-3 logger to log requests, responses, and errors.\n\n")
	b.WriteString(dbSection)
	b.WriteString("\n")
	return b.String()
}

func authSection(auth types.AuthConfig) string {
	switch auth.Method {
	case types.AuthBearer:
		return fmt.Sprintf("Implement Bearer Token authentication. The constructor MUST accept a token string (e.g., `%s`). "+
			"This token MUST be passed in the 'Authorization: Bearer <token>' header for every request.", auth.TokenVariableName)
	case types.AuthBasic:
		return fmt.Sprintf("Implement Basic authentication. The constructor MUST accept username and password strings (e.g., `%s`, `%s`). "+
			"These credentials MUST be Base64 encoded and passed in the 'Authorization: Basic <encoded>' header for every request.",
			auth.UsernameVariableName, auth.PasswordVariableName)
	case types.AuthQuery:
		return fmt.Sprintf("Implement API Key in Query Parameter authentication. The constructor MUST accept an API key string (e.g., `%s`). "+
			"This key MUST be added as a query parameter `%s=<key>` to every request.", auth.QueryValueName, auth.QueryKeyName)
	case types.AuthChained:
		var b strings.Builder
		b.WriteString("Implement a Chained Token authentication flow.\n")
		b.WriteString("- The constructor SHOULD accept any credentials needed for the token request (e.g., client ID, secret).\n")
		b.WriteString("- A private property, e.g., `$accessToken`, should store the fetched token.\n")
		fmt.Fprintf(&b, "- A public method, e.g., `authenticate()`, MUST exist to perform the token request. "+
			"This method sends a %s request to `%s` with the following JSON body: `%s`. "+
			"It must parse the JSON response and extract the token from the path: `%s`.\n",
			auth.TokenEndpointMethod, auth.TokenEndpointPath, auth.RequestBody, auth.TokenPathInResponse)
		b.WriteString("- The main `sendRequest` helper MUST check if a token exists. If not, it MUST call `authenticate()` first.\n")
		fmt.Fprintf(&b, "- All subsequent API calls MUST include the 'Authorization: %s <token>' header.", auth.SchemeInHeader)
		return b.String()
	default:
		return "No authentication is required."
	}
}

// dtoSection returns the DTO prompt and the return type per endpoint name
func dtoSection(endpoints []types.Endpoint) (string, map[string]string) {
	var b strings.Builder
	returns := make(map[string]string)
	seen := make(map[string]bool)

	for _, ep := range endpoints {
		if ep.SamplePayload == "" {
			continue
		}
		plan := planDTO(ep)
		if seen[plan.name] {
			continue
		}
		seen[plan.name] = true

		sample := ep.SamplePayload
		if plan.isList {
			sample = firstListItem(ep.SamplePayload)
		}

		fmt.Fprintf(&b, "\n### DTO Class: %s\n", plan.name)
		fmt.Fprintf(&b, "- Generate a readonly DTO class named `%s`.\n", plan.name)
		b.WriteString("- Its properties should be derived from the following JSON object structure.\n")
		b.WriteString("- All properties MUST be `public readonly`.\n")
		b.WriteString("- Use native PHP types. For nested objects, generate separate DTO classes if necessary and use them as type hints.\n")
		fmt.Fprintf(&b, "- JSON for `%s`: ```json\n%s\n```\n", plan.name, sample)

		returns[ep.Name] = plan.returnType
	}
	return b.String(), returns
}

// firstListItem returns the first element of a JSON array payload, formatted.
// Payloads that are not valid JSON arrays are returned unchanged.
func firstListItem(payload string) string {
	v, err := document.DecodeJSON([]byte(payload))
	if err != nil || v.Kind() != document.Seq || v.Len() == 0 {
		return payload
	}
	out, err := v.Items()[0].Indent()
	if err != nil {
		return payload
	}
	return out
}

// PathParams returns the {placeholder} names of a path in order
func PathParams(path string) []string {
	var params []string
	for _, m := range pathParam.FindAllStringSubmatch(path, -1) {
		params = append(params, m[1])
	}
	return params
}

// MethodSignature renders the PHP argument list for an endpoint
func MethodSignature(ep types.Endpoint) string {
	args := make([]string, 0)
	for _, p := range PathParams(ep.Path) {
		args = append(args, "string $"+p)
	}
	if ep.Method.HasBody() {
		args = append(args, "array $body = []")
	} else {
		args = append(args, "array $queryParams = []")
	}
	return strings.Join(args, ", ")
}

func endpointsSection(endpoints []types.Endpoint, returns map[string]string) string {
	if len(endpoints) == 0 {
		return "No endpoints specified."
	}

	details := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		returnType, ok := returns[ep.Name]
		if !ok {
			returnType = "array"
		}
		returnDoc := fmt.Sprintf("* @return %s The decoded JSON response or a DTO.", returnType)
		if returnType != "array" {
			returnDoc += "\n     * @throws ApiClientException On API error."
		}

		var b strings.Builder
		fmt.Fprintf(&b, "- **Method:** `public function %s(%s)`\n", ep.Name, MethodSignature(ep))
		fmt.Fprintf(&b, "  - **HTTP Method:** %s\n", ep.Method)
		fmt.Fprintf(&b, "  - **Path:** `%s` (substitute path variables)\n", ep.Path)
		b.WriteString("  - **Parameters:** Handle path params, request body (for POST/PUT/PATCH), and query params appropriately.\n")
		b.WriteString("  - **Return Value:** \n")
		fmt.Fprintf(&b, "    /**\n     %s\n     */\n", returnDoc)
		fmt.Fprintf(&b, "    The method MUST return a value of type `%s`. If the type is a DTO, instantiate it from the response data. "+
			"If it is an array of DTOs, return an array of instantiated DTOs.\n    ", returnType)
		details = append(details, b.String())
	}

	var b strings.Builder
	b.WriteString("## Section 3: API Client Class\n")
	b.WriteString("Generate the main client class, `Client`.\n")
	b.WriteString("- **Constructor:** Inject `ClientInterface`, `RequestFactoryInterface`, `StreamFactoryInterface`, and a `LoggerInterface`. Also accept auth credentials.\n")
	b.WriteString("- **Helper Method:** Create a private `sendRequest` method to encapsulate request creation, sending, and response handling logic. It must perform logging.\n")
	b.WriteString("- **Public Methods:** Generate a public method for each of the following endpoints:\n")
	b.WriteString(strings.Join(details, "\n"))
	return b.String()
}

// UpsertClause describes the upsert statement style for a database type
func UpsertClause(dbType types.DatabaseType) string {
	switch dbType {
	case types.DatabasePostgreSQL, types.DatabaseSQLite:
		return "Use an `INSERT ... ON CONFLICT(id) DO UPDATE SET ...` statement."
	default:
		return "Use an `INSERT ... ON DUPLICATE KEY UPDATE ...` statement."
	}
}

func dbHandlerSection(endpoints []types.Endpoint, returns map[string]string, tables map[string][]string) string {
	var b strings.Builder
	processed := make(map[string]bool)

	for _, ep := range endpoints {
		if !ep.Persistence.Enabled || ep.SamplePayload == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("\n## Section 4: Database Handler Class\n")
			b.WriteString("Generate a class named `ApiClientDbHandler`.\n")
			b.WriteString("- It MUST have a constructor that accepts a `\\PDO` instance.\n")
			b.WriteString("- For each DTO that can be persisted, generate a corresponding `save` method.\n")
		}

		returnType, ok := returns[ep.Name]
		if !ok {
			continue
		}
		dtoName := strings.TrimSuffix(strings.TrimPrefix(returnType, "array<"), ">")
		if processed[dtoName] {
			continue
		}
		processed[dtoName] = true

		table := ep.Persistence.TableName
		fmt.Fprintf(&b, "\n### Method: save%s\n", dtoName)
		fmt.Fprintf(&b, "- Create a public method `save%s(` that accepts one argument: `%s $dto`.\n", dtoName, dtoName)
		fmt.Fprintf(&b, "- This method persists the DTO data to the `%s` table.\n", table)
		b.WriteString("- Assume the DTO has an `id` property that is the primary key.\n")
		fmt.Fprintf(&b, "- The method must perform an \"upsert\" operation. %s\n", UpsertClause(ep.Persistence.DBType))
		if cols := tables[table]; len(cols) > 0 {
			fmt.Fprintf(&b, "- The table has exactly these columns: `%s`. Map DTO properties onto them.\n", strings.Join(cols, "`, `"))
		} else {
			b.WriteString("- Map the DTO properties to the table columns (assuming snake_case column names from camelCase DTO properties).\n")
		}
	}
	return b.String()
}
