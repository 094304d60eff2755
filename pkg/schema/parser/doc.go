// Package parser decodes schema documents into ast nodes.
//
// Documents are YAML or JSON. Every node is a mapping:
//
//	type: object            # literal, expr, tuple, list or object ("kind" is accepted too)
//	mapping:                # kind-specific payload
//	  id:
//	    type: expr
//	    mapping: ["concat", "id_", ["str", "$0.loop_index"]]
//	ctx: {}                 # optional context defaults
//	plugins: []             # optional plugin descriptors
//	if: []                  # optional inclusion guard
//	computed: {}            # optional computed fields
//
// Mapping key order is preserved for object nodes, ctx and literal payloads.
// Structural problems are collected and reported together as an
// errors.ErrorList, each entry carrying the line and column of the offending
// YAML node.
package parser
