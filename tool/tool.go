//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package tool provides tool interfaces and declarations for the agent system.
package tool

import "context"

// Tool is the interface that all tools advertised to the model implement.
type Tool interface {
	// Declaration returns the metadata describing the tool to the model.
	Declaration() *Declaration
}

// CallableTool is a tool that can be invoked with JSON-encoded arguments.
type CallableTool interface {
	Tool

	// Call executes the tool with JSON-encoded arguments and returns the result.
	Call(ctx context.Context, jsonArgs []byte) (any, error)
}

// Declaration describes a tool: its name, purpose and argument schema.
type Declaration struct {
	// Name is the tool name offered to the model.
	// Must match ^[a-zA-Z0-9_-]+$ for LLM API compatibility.
	Name string `json:"name"`
	// Description is the natural-language purpose of the tool.
	Description string `json:"description"`
	// InputSchema is the JSON schema of the tool arguments.
	InputSchema *Schema `json:"input_schema,omitempty"`
	// OutputSchema is the JSON schema of the tool result.
	OutputSchema *Schema `json:"output_schema,omitempty"`
}

// Schema is a JSON schema describing tool arguments or results.
type Schema struct {
	// Type is the JSON schema type: "object", "array", "string", etc.
	Type string `json:"type,omitempty"`
	// Description describes the value.
	Description string `json:"description,omitempty"`
	// Properties holds the schemas of an object's fields.
	Properties map[string]*Schema `json:"properties,omitempty"`
	// Required lists the object fields that must be present.
	Required []string `json:"required,omitempty"`
	// Items is the schema of array elements.
	Items *Schema `json:"items,omitempty"`
	// Enum restricts the value to a fixed set.
	Enum []any `json:"enum,omitempty"`
	// AdditionalProperties is the schema of map values.
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`
	// Ref is a reference to a schema definition.
	Ref string `json:"$ref,omitempty"`
	// Defs holds reusable schema definitions.
	Defs map[string]*Schema `json:"$defs,omitempty"`
}
