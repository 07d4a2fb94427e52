package parser

import (
	"time"

	"github.com/google/uuid"

	"phpclientgen/internal/document"
)

const sampleEmail = "user@example.com"

// Sample builds one example value for a JSON-Schema-like node. A nil or null
// schema yields null. An unresolved $ref yields a note object instead of
// failing, so one bad sub-schema does not abort the whole import.
func Sample(schema *document.Value, now time.Time) *document.Value {
	if schema.IsNull() {
		return document.NullValue()
	}
	if schema.Kind() != document.Map {
		return document.NewMap()
	}

	if ref := schema.Get("$ref"); ref != nil {
		text, ok := ref.Scalar()
		if !ok {
			text = ref.Kind().String()
		}
		note := document.NewMap()
		note.Set("note", document.StringValue("Could not resolve reference: "+text))
		return note
	}

	if ex := schema.Get("example"); !ex.IsNull() {
		return ex.Clone()
	}
	if def := schema.Get("default"); !def.IsNull() {
		return def.Clone()
	}

	format, _ := schema.Get("format").Str()

	switch schemaType(schema) {
	case "object":
		return sampleObject(schema, now)
	case "array":
		return sampleArray(schema, now)
	case "string":
		switch format {
		case "date-time":
			return document.StringValue(now.UTC().Format("2006-01-02T15:04:05.000Z"))
		case "date":
			return document.StringValue(now.UTC().Format("2006-01-02"))
		case "email":
			return document.StringValue(sampleEmail)
		case "uuid":
			return document.StringValue(uuid.Nil.String())
		}
		return document.StringValue("string")
	case "number":
		if format == "float" || format == "double" {
			return document.Float(0)
		}
		return document.Int(0)
	case "integer":
		return document.Int(0)
	case "boolean":
		return document.BoolValue(true)
	case "null":
		return document.NullValue()
	default:
		if schema.Has("properties") {
			return sampleObject(schema, now)
		}
		if schema.Has("items") {
			return sampleArray(schema, now)
		}
		return document.NewMap()
	}
}

// schemaType returns the declared type, taking the first entry of a type list.
func schemaType(schema *document.Value) string {
	t := schema.Get("type")
	if t.Kind() == document.Seq && t.Len() > 0 {
		t = t.Items()[0]
	}
	s, _ := t.Str()
	return s
}

func sampleObject(schema *document.Value, now time.Time) *document.Value {
	obj := document.NewMap()
	for _, prop := range schema.Get("properties").Members() {
		obj.Set(prop.Key, Sample(prop.Value, now))
	}
	return obj
}

func sampleArray(schema *document.Value, now time.Time) *document.Value {
	items := schema.Get("items")
	if items.IsNull() {
		return document.NewSeq()
	}
	return document.NewSeq(Sample(items, now))
}
