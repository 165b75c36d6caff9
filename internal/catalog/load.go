package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scholarship-agent/internal/domain"
)

// Source names accepted by Load.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceDynamoDB = "dynamodb"
)

//go:embed data/default.yaml
var defaultDocument []byte

type document struct {
	Version      string                     `yaml:"version"`
	Scholarships []domain.ScholarshipRecord `yaml:"scholarships"`
}

// Options selects where the catalog is loaded from.
type Options struct {
	Source  string
	Path    string
	Version string
	Tables  TableReader
}

// Load builds the catalog from the configured source. An empty source means
// the embedded default.
func Load(ctx context.Context, opts Options) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Source)) {
	case "", SourceEmbedded:
		return Default()
	case SourceFile:
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("%w: path", ErrMissingSourceArg)
		}
		return LoadFile(opts.Path)
	case SourceDynamoDB:
		if opts.Tables == nil {
			return nil, fmt.Errorf("%w: table reader", ErrMissingSourceArg)
		}
		return opts.Tables.LoadVersion(ctx, opts.Version)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, opts.Source)
	}
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	c, err := Parse(defaultDocument)
	if err != nil {
		return nil, fmt.Errorf("catalog: embedded default: %w", err)
	}
	return c, nil
}

// LoadFile reads a YAML or JSON catalog document from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. JSON is accepted because
// it is a subset of YAML.
func Parse(data []byte) (*Catalog, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog: decode document: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode records: %w", err)
	}
	return New(doc.Version, doc.Scholarships)
}
