// Package depfilter selects dependencies with a jq expression that is
// evaluated against the JSON representation of a deps.Dependency.
package depfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/simplesurance/depupdater/internal/deps"
)

// Filter is a compiled jq query that must evaluate to exactly one boolean.
type Filter struct {
	query *gojq.Query
}

// Parse parses a jq expression.
// An empty expression returns a nil Filter, a nil Filter matches every
// dependency.
func Parse(expr string) (*Filter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing jq expression %q failed: %w", expr, err)
	}

	return &Filter{query: query}, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return f.query.String()
}

func iterToSlice(iter gojq.Iter) ([]any, []error) {
	var result []any
	var errs []error

	for {
		res, ok := iter.Next()
		if !ok {
			return result, errs
		}

		if err, isErr := res.(error); isErr {
			errs = append(errs, err)
			continue
		}

		result = append(result, res)
	}
}

func errString(errs []error) string {
	var result strings.Builder

	for i, err := range errs {
		if i > 0 {
			result.WriteString("; ")
		}

		result.WriteString(fmt.Sprintf("error %d: %s", i, err))
	}

	return result.String()
}

// Match returns true if the query evaluates to true for the JSON
// representation of dep.
func (f *Filter) Match(ctx context.Context, dep *deps.Dependency) (bool, error) {
	if f == nil {
		return true, nil
	}

	// gojq only operates on the generic types produced by encoding/json,
	// the dependency is converted by a marshal/unmarshal roundtrip
	buf, err := json.Marshal(dep)
	if err != nil {
		return false, fmt.Errorf("marshaling dependency to json failed: %w", err)
	}

	var depUn any
	if err := json.Unmarshal(buf, &depUn); err != nil {
		return false, fmt.Errorf("unmarshaling json failed: %w", err)
	}

	result, errs := iterToSlice(f.query.RunWithContext(ctx, depUn))
	if len(errs) != 0 {
		return false, fmt.Errorf("json query returned errors, query: %q, errors: %s", f.query.String(), errString(errs))
	}

	if len(result) == 0 {
		return false, fmt.Errorf("json query returned 0 results, expected 1, query: %q", f.query.String())
	}

	if len(result) > 1 {
		return false, fmt.Errorf("json query returned multiple results, expected 1, query: %q, result: '%+v'", f.query.String(), result)
	}

	match, ok := result[0].(bool)
	if !ok {
		return false, fmt.Errorf("json query returned a %T, expected a boolean, query: %q", result[0], f.query.String())
	}

	return match, nil
}
