//
// Tencent is pleased to support the open source community by making trpc-repoqa-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-repoqa-go is licensed under the Apache License Version 2.0.
//
//

// Package schema generates JSON schemas for tool arguments and results.
package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"trpc.group/trpc-go/trpc-repoqa-go/log"
	"trpc.group/trpc-go/trpc-repoqa-go/tool"
)

// Generate generates a JSON schema from a reflect.Type.
func Generate(t reflect.Type) *tool.Schema {
	switch t.Kind() {
	case reflect.Ptr:
		return Generate(t.Elem())
	case reflect.Struct:
		return structSchema(t)
	default:
		return fieldSchema(t)
	}
}

func structSchema(t reflect.Type) *tool.Schema {
	s := &tool.Schema{
		Type:       "object",
		Properties: map[string]*tool.Schema{},
	}
	required := make([]string, 0)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		isOmitEmpty := false
		if jsonTag != "" {
			if commaIdx := strings.Index(jsonTag, ","); commaIdx != -1 {
				fieldName = jsonTag[:commaIdx]
				isOmitEmpty = strings.Contains(jsonTag[commaIdx:], "omitempty")
			} else {
				fieldName = jsonTag
			}
		}

		fs := fieldSchema(field.Type)

		isRequiredByTag, err := parseJSONSchemaTag(field.Type, field.Tag, fs)
		if err != nil {
			log.Errorf("parse jsonschema tag for field %s: %v", fieldName, err)
		}
		if (field.Type.Kind() != reflect.Ptr && !isOmitEmpty) || isRequiredByTag {
			required = append(required, fieldName)
		}

		s.Properties[fieldName] = fs
	}

	if len(required) > 0 {
		s.Required = required
	}
	return s
}

func fieldSchema(t reflect.Type) *tool.Schema {
	switch t.Kind() {
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		return &tool.Schema{
			Type:  "array",
			Items: fieldSchema(t.Elem()),
		}
	case reflect.Map:
		return &tool.Schema{
			Type:                 "object",
			AdditionalProperties: fieldSchema(t.Elem()),
		}
	case reflect.Ptr:
		return fieldSchema(t.Elem())
	case reflect.Struct:
		return structSchema(t)
	default:
		return &tool.Schema{Type: "object"}
	}
}

// parseJSONSchemaTag parses a jsonschema struct tag and applies the settings to the schema.
// Supported struct tags:
// 1. jsonschema: "description=xxx"
// 2. jsonschema: "enum=xxx,enum=yyy"
// 3. jsonschema: "required"
func parseJSONSchemaTag(fieldType reflect.Type, tag reflect.StructTag, s *tool.Schema) (bool, error) {
	jsonSchemaTag := tag.Get("jsonschema")
	if len(jsonSchemaTag) == 0 {
		return false, nil
	}

	isRequiredByTag := false
	for _, tagItem := range strings.Split(jsonSchemaTag, ",") {
		kv := strings.SplitN(tagItem, "=", 2)
		if len(kv) == 2 {
			key, value := kv[0], kv[1]
			switch key {
			case "description":
				s.Description = value
			case "enum":
				if err := appendEnum(fieldType, value, s); err != nil {
					return false, err
				}
			}
		} else if kv[0] == "required" {
			isRequiredByTag = true
		}
	}
	return isRequiredByTag, nil
}

func appendEnum(fieldType reflect.Type, value string, s *tool.Schema) error {
	switch fieldType.Kind() {
	case reflect.String:
		s.Enum = append(s.Enum, value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("parse enum value %v to int64 failed: %w", value, err)
		}
		s.Enum = append(s.Enum, v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("parse enum value %v to float64 failed: %w", value, err)
		}
		s.Enum = append(s.Enum, v)
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parse enum value %v to bool failed: %w", value, err)
		}
		s.Enum = append(s.Enum, v)
	default:
		return fmt.Errorf("enum tag unsupported for field type: %v", fieldType)
	}
	return nil
}
