package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/mockman/pkg/jsonmc"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
)

// LoadFromFile reads a Document from a JsonMC or YAML file. The format is
// auto-detected based on file extension (.yaml, .yml for YAML, otherwise
// JsonMC). Returns wrapped errors for common failure cases.
func LoadFromFile(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return ParseYAML(data)
	}
	return ParseJsonMC(string(data))
}

// ParseJsonMC runs input through the JsonMC parser (environment expansion,
// comment/multiline-string rewriting) and decodes the result into a
// Document.
func ParseJsonMC(input string) (*Document, error) {
	data, err := jsonmc.Prepare(input)
	if err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &doc, nil
}

// ParseYAML decodes a Document directly from YAML bytes. YAML documents do
// not go through JsonMC's comment/multiline rewrite (YAML already has
// native comments and block scalars) but environment expansion still
// applies, since "@{...}" references are resolved ahead of structural
// parsing.
func ParseYAML(data []byte) (*Document, error) {
	expanded, err := jsonmc.ExpandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("expanding environment references: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &doc, nil
}

// Validate checks structural requirements that the JSON/YAML schema itself
// cannot express: every server needs a non-blank serverId, and serverIds
// must be unique within the document.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Servers))
	var errs []error
	for i, s := range d.Servers {
		if s.Server.ServerID == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: serverId must not be blank", i))
			continue
		}
		if seen[s.Server.ServerID] {
			errs = append(errs, fmt.Errorf("servers[%d]: duplicate serverId %q", i, s.Server.ServerID))
			continue
		}
		seen[s.Server.ServerID] = true
	}
	return errors.Join(errs...)
}
