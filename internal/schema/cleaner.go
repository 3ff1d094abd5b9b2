// Package schema cleans OpenAI-style JSON schemas into the subset the
// upstream Antigravity dialect accepts, and maps tool declarations/results
// between the OpenAI and Gemini function-calling shapes.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// droppedFields are stripped outright; the upstream rejects requests that
// carry them.
var droppedFields = map[string]bool{
	"$schema":             true,
	"additionalProperties": true,
	"uniqueItems":          true,
	"exclusiveMinimum":     true,
	"exclusiveMaximum":     true,
}

// elidedFields are removed from the schema node but surfaced as a
// human-readable suffix on the nearest enclosing "description" field.
var elidedFields = []string{
	"minLength", "maxLength", "minimum", "maximum", "minItems", "maxItems",
	"minProperties", "maxProperties", "pattern", "format", "multipleOf",
}

// CleanParameters recursively cleans a tool's JSON-schema "parameters" node
// in place and returns it. Constraint fields are elided into the
// top-level description; everything else is preserved verbatim.
func CleanParameters(node map[string]interface{}) map[string]interface{} {
	if node == nil {
		return node
	}
	suffix := cleanNode(node)
	if suffix != "" {
		desc, _ := node["description"].(string)
		if desc != "" {
			node["description"] = desc + " (" + suffix + ")"
		} else {
			node["description"] = suffix
		}
	}
	return node
}

// cleanNode cleans one schema node, recursing into properties/items, and
// returns the constraint suffix gathered for THIS node only (constraints
// on nested nodes are elided into their own "description", not bubbled up,
// matching the spec's "top-level description field only" wording per tool).
func cleanNode(node map[string]interface{}) string {
	var parts []string

	additionalPropsFalse := false
	if v, ok := node["additionalProperties"]; ok {
		if b, ok := v.(bool); ok && !b {
			additionalPropsFalse = true
		}
	}

	for field := range droppedFields {
		delete(node, field)
	}

	for _, field := range elidedFields {
		v, ok := node[field]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", field, v))
		delete(node, field)
	}
	sort.Strings(parts)

	if additionalPropsFalse {
		parts = append(parts, "no additional properties")
	}

	if req, ok := node["required"].([]interface{}); ok && len(req) == 0 {
		delete(node, "required")
	}

	if props, ok := node["properties"].(map[string]interface{}); ok {
		for _, v := range props {
			if child, ok := v.(map[string]interface{}); ok {
				CleanParameters(child)
			}
		}
	}
	if items, ok := node["items"].(map[string]interface{}); ok {
		CleanParameters(items)
	}
	for _, combinator := range []string{"anyOf", "oneOf", "allOf"} {
		if list, ok := node[combinator].([]interface{}); ok {
			for _, v := range list {
				if child, ok := v.(map[string]interface{}); ok {
					CleanParameters(child)
				}
			}
		}
	}

	return strings.Join(parts, ", ")
}
