// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package toolcatalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
)

//go:embed catalog.jsonc
var embedded []byte

// Catalog lists the automation modules in presentation order.
type Catalog struct {
	Modules []Module `json:"modules"`
}

// Module groups the functions of one automation module.
type Module struct {
	Name      string     `json:"module"`
	Functions []Function `json:"functions"`
}

// Function describes one callable primitive.
type Function struct {
	Name string `json:"name"`

	// Params are rendered verbatim, e.g. "button: str = 'left'".
	Params []string `json:"params"`

	// Returns is empty when the function declares no return type.
	Returns string `json:"returns,omitempty"`

	// Description is a one-paragraph summary.
	Description string `json:"description"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It is parsed on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embedded)
	})
	return defaultCatalog, defaultErr
}

// Parse decodes a catalog from JSONC and validates it.
func Parse(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(jsonc.ToJSON(data), &catalog); err != nil {
		return nil, fmt.Errorf("parsing tool catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// Validate reports every structural problem at once.
func (catalog *Catalog) Validate() error {
	var errs []error
	if len(catalog.Modules) == 0 {
		errs = append(errs, errors.New("tool catalog has no modules"))
	}
	seen := make(map[string]bool)
	for moduleIndex, module := range catalog.Modules {
		if module.Name == "" {
			errs = append(errs, fmt.Errorf("modules[%d]: missing module name", moduleIndex))
			continue
		}
		for functionIndex, function := range module.Functions {
			if function.Name == "" {
				errs = append(errs, fmt.Errorf("%s.functions[%d]: missing name", module.Name, functionIndex))
				continue
			}
			qualified := module.Name + "." + function.Name
			if seen[qualified] {
				errs = append(errs, fmt.Errorf("%s: declared twice", qualified))
			}
			seen[qualified] = true
		}
	}
	return errors.Join(errs...)
}

// Count returns the number of functions across all modules.
func (catalog *Catalog) Count() int {
	count := 0
	for _, module := range catalog.Modules {
		count += len(module.Functions)
	}
	return count
}

// Lookup finds a function by its qualified "module.name".
func (catalog *Catalog) Lookup(qualified string) (Function, bool) {
	moduleName, functionName, ok := strings.Cut(qualified, ".")
	if !ok {
		return Function{}, false
	}
	for _, module := range catalog.Modules {
		if module.Name != moduleName {
			continue
		}
		for _, function := range module.Functions {
			if function.Name == functionName {
				return function, true
			}
		}
	}
	return Function{}, false
}

// Render formats the catalog for the agent's instructions: a "## module"
// heading per module, then one entry per function:
//
//	- **actions.click**(x: int, y: int) -> None
//	  Click at the given screen coordinates.
func (catalog *Catalog) Render() string {
	var builder strings.Builder
	for _, module := range catalog.Modules {
		builder.WriteString("\n## ")
		builder.WriteString(module.Name)
		for _, function := range module.Functions {
			builder.WriteByte('\n')
			builder.WriteString(function.Signature(module.Name))
			builder.WriteString("\n  ")
			description := function.Description
			if description == "" {
				description = "No description."
			}
			builder.WriteString(description)
		}
	}
	return builder.String()
}

// Signature renders the bold qualified name, parameters, and return
// type of function as it appears in the instructions.
func (function Function) Signature(module string) string {
	signature := fmt.Sprintf("- **%s.%s**(%s)", module, function.Name, strings.Join(function.Params, ", "))
	if function.Returns != "" {
		signature += " -> " + function.Returns
	}
	return signature
}
