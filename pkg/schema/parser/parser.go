package parser

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
)

// Parser parses schema documents into ast nodes.
type Parser struct {
	maxFileSize int64 // Maximum document size in bytes (default: 10MB)
	maxDepth    int   // Maximum node nesting depth (default: 64)
}

// NewParser creates a new parser with default configuration.
func NewParser() *Parser {
	return &Parser{
		maxFileSize: 10 * 1024 * 1024, // 10MB
		maxDepth:    64,
	}
}

// WithMaxFileSize sets the maximum document size.
func (p *Parser) WithMaxFileSize(size int64) *Parser {
	p.maxFileSize = size
	return p
}

// WithMaxDepth sets the maximum node nesting depth.
func (p *Parser) WithMaxDepth(depth int) *Parser {
	p.maxDepth = depth
	return p
}

// ParseFile parses the schema document at path.
func (p *Parser) ParseFile(path string) (ast.Node, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindIO, err, "Failed to access file: %v", err).
			At(schemaerrors.Location{File: path})
	}
	if info.Size() > p.maxFileSize {
		return nil, schemaerrors.New(schemaerrors.KindIO,
			"File size %d exceeds maximum %d bytes", info.Size(), p.maxFileSize).
			At(schemaerrors.Location{File: path})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindIO, err, "Failed to read file: %v", err).
			At(schemaerrors.Location{File: path})
	}
	return p.ParseBytes(data, path)
}

// ParseBytes parses a schema document held in memory. source names the
// document in error locations.
func (p *Parser) ParseBytes(data []byte, source string) (ast.Node, error) {
	if int64(len(data)) > p.maxFileSize {
		return nil, schemaerrors.New(schemaerrors.KindIO,
			"Data size %d exceeds maximum %d bytes", len(data), p.maxFileSize).
			At(schemaerrors.Location{File: source})
	}
	if !utf8.Valid(data) {
		return nil, schemaerrors.New(schemaerrors.KindIO, "Document is not valid UTF-8").
			At(schemaerrors.Location{File: source})
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindSyntax, err, "YAML parsing failed: %v", err).
			At(schemaerrors.Location{File: source, Line: 1, Column: 1}).
			WithSuggestion("Check YAML syntax (indentation, colons, quotes)")
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return nil, schemaerrors.New(schemaerrors.KindSchemaDefinition, "Document is empty").
			At(schemaerrors.Location{File: source})
	}

	return p.build(&doc, source)
}

// Decode builds a node from a Go value tree such as the result of
// json.Unmarshal into any. Plain Go maps carry no key order, so their keys
// are taken in sorted order; *value.Map keeps its own order.
func (p *Parser) Decode(tree any) (ast.Node, error) {
	var n yaml.Node
	if err := n.Encode(tree); err != nil {
		return nil, schemaerrors.Wrap(schemaerrors.KindSchemaDefinition, err, "Cannot decode schema: %v", err)
	}
	return p.build(&n, "")
}

func (p *Parser) build(n *yaml.Node, source string) (ast.Node, error) {
	b := newBuilder(source, p.maxDepth)
	node := b.buildNode(n, 1)
	if b.errors.HasErrors() {
		for i, e := range b.errors.Errors {
			b.errors.Errors[i] = schemaerrors.AddContextToError(e)
		}
		return nil, b.errors.ToError()
	}
	return node, nil
}

// ParseFile parses the document at path with a default parser.
func ParseFile(path string) (ast.Node, error) {
	return NewParser().ParseFile(path)
}

// ParseBytes parses data with a default parser.
func ParseBytes(data []byte, source string) (ast.Node, error) {
	return NewParser().ParseBytes(data, source)
}

// Decode builds a node from a Go value tree with a default parser.
func Decode(tree any) (ast.Node, error) {
	return NewParser().Decode(tree)
}

// MustDecode is Decode for trees known to be valid. It panics on error.
func MustDecode(tree any) ast.Node {
	node, err := Decode(tree)
	if err != nil {
		panic(fmt.Sprintf("parser: %v", err))
	}
	return node
}
