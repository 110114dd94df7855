package domain

import (
	"errors"
	"strings"

	"github.com/bytedance/sonic"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaBase = "https://todo-api/schemas/"

	taskCreateSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string", "minLength": 1}
	}
}`
	taskUpdateSchema = `{
	"type": "object",
	"properties": {
		"text": {"type": ["string", "null"], "minLength": 1},
		"completed": {"type": ["boolean", "null"]},
		"order": {"type": ["integer", "null"]}
	}
}`
	taskReorderSchema = `{
	"type": "object",
	"required": ["task_ids"],
	"properties": {
		"task_ids": {"type": "array", "items": {"type": "string"}}
	}
}`
)

var (
	createSchema  = mustCompile(schemaBase+"task_create.json", taskCreateSchema)
	updateSchema  = mustCompile(schemaBase+"task_update.json", taskUpdateSchema)
	reorderSchema = mustCompile(schemaBase+"task_reorder.json", taskReorderSchema)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic("domain: add schema " + name + ": " + err.Error())
	}
	return compiler.MustCompile(name)
}

// DecodeTaskCreate validates and decodes a create request body.
func DecodeTaskCreate(data []byte) (TaskCreate, error) {
	return decode[TaskCreate](createSchema, data)
}

// DecodeTaskUpdate validates and decodes an update request body. JSON nulls are
// treated the same as absent fields.
func DecodeTaskUpdate(data []byte) (TaskUpdate, error) {
	return decode[TaskUpdate](updateSchema, data)
}

// DecodeTaskReorder validates and decodes a reorder request body.
func DecodeTaskReorder(data []byte) (TaskReorder, error) {
	return decode[TaskReorder](reorderSchema, data)
}

func decode[T any](schema *jsonschema.Schema, data []byte) (T, error) {
	var out T
	var raw any
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return out, &ValidationError{Message: "invalid JSON body"}
	}
	if err := schema.Validate(raw); err != nil {
		return out, schemaError(err)
	}
	if err := sonic.ConfigStd.Unmarshal(data, &out); err != nil {
		return out, &ValidationError{Message: err.Error()}
	}
	return out, nil
}

// schemaError reports the first leaf cause of a schema violation.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &ValidationError{
		Field:   strings.ReplaceAll(strings.TrimPrefix(ve.InstanceLocation, "/"), "/", "."),
		Message: ve.Message,
	}
}
