package normalize

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Sternrassler/manga-proxy/pkg/cache"
)

// ErrMissingParam is returned by Validate when a required parameter is empty.
var ErrMissingParam = errors.New("missing required parameter")

var validate = validator.New()

// Params is the normalized parameter set of one request. Values are stored
// as their canonical strings; maps make the result independent of the order
// of the incoming query string.
type Params struct {
	Operation Operation
	Path      map[string]string
	Query     map[string]string

	schema Schema
}

// Normalize applies op's schema to the raw query string and route
// parameters. Unrecognized parameters are dropped, missing or empty ones
// take their default, repeated ones resolve to a single value regardless
// of order, and integers that do not parse (or fall below the
// minimum) silently fall back to the default.
func Normalize(op Operation, raw url.Values, path map[string]string) Params {
	schema, _ := SchemaFor(op)

	p := Params{
		Operation: op,
		Path:      make(map[string]string),
		Query:     make(map[string]string),
		schema:    schema,
	}

	for _, f := range schema {
		switch f.Source {
		case Path:
			p.Path[f.Name] = strings.TrimSpace(path[f.Name])
		case Fixed:
			p.Query[f.Name] = f.Default
		default:
			p.Query[f.Name] = coerce(f, pick(raw[f.Name]))
		}
	}

	return p
}

// pick chooses one value for a repeated parameter: the lexicographically
// smallest non-blank one, so the order of repeats cannot change the key.
func pick(values []string) string {
	chosen := ""
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if chosen == "" || v < chosen {
			chosen = v
		}
	}
	return chosen
}

func coerce(f Field, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return f.Default
	}

	if f.Kind == Int {
		n, err := strconv.Atoi(value)
		if err != nil || n < f.Min {
			return f.Default
		}
		return strconv.Itoa(n)
	}

	return value
}

// Get returns the normalized value of name from the path or query set.
func (p Params) Get(name string) string {
	if v, ok := p.Path[name]; ok {
		return v
	}
	return p.Query[name]
}

// Values returns the parameters forwarded upstream.
func (p Params) Values() url.Values {
	if len(p.Query) == 0 {
		return nil
	}
	v := make(url.Values, len(p.Query))
	for name, value := range p.Query {
		v.Set(name, value)
	}
	return v
}

// With returns a copy of p with query parameter name set to value.
func (p Params) With(name, value string) Params {
	out := Params{
		Operation: p.Operation,
		Path:      make(map[string]string, len(p.Path)),
		Query:     make(map[string]string, len(p.Query)+1),
		schema:    p.schema,
	}
	for k, v := range p.Path {
		out.Path[k] = v
	}
	for k, v := range p.Query {
		out.Query[k] = v
	}
	out.Query[name] = value
	return out
}

// Key derives the cache key: operation plus every normalized parameter,
// defaults included.
func (p Params) Key() cache.CacheKey {
	return cache.CacheKey{
		Operation:   string(p.Operation),
		PathParams:  p.Path,
		QueryParams: p.Values(),
	}
}

// Canonical is the rendered cache key.
func (p Params) Canonical() string {
	return p.Key().String()
}

// Validate reports the first required parameter that is empty.
func (p Params) Validate() error {
	for _, f := range p.schema {
		if !f.Required {
			continue
		}
		if err := validate.Var(p.Get(f.Name), "required"); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingParam, f.Name)
		}
	}
	return nil
}
