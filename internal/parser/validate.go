package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

// Validate runs OpenAPI schema validation over raw and returns one finding
// per problem. Findings are advisory; Parse does not depend on them. The
// returned error is non-nil only when the document cannot be loaded at all.
func Validate(ctx context.Context, raw string) ([]string, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, formatError("failed to encode document", err)
	}

	var api *openapi3.T
	if doc.Has("swagger") {
		var v2 openapi2.T
		if err := json.Unmarshal(data, &v2); err != nil {
			return nil, structureError("failed to load Swagger 2.0 document", err)
		}
		api, err = openapi2conv.ToV3(&v2)
		if err != nil {
			return nil, structureError("failed to convert Swagger 2.0 document", err)
		}
	} else {
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = false
		loader.Context = ctx
		api, err = loader.LoadFromData(data)
		if err != nil {
			return nil, structureError("failed to load OpenAPI document", err)
		}
	}

	if err := api.Validate(ctx); err != nil {
		return findings(err), nil
	}
	return nil, nil
}

func findings(err error) []string {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		out := make([]string, 0, len(multi))
		for _, e := range multi {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{fmt.Sprint(err)}
}
