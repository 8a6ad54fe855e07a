package endpoint

import (
	"fmt"
	"net/url"
	"strings"
)

// Pair is a single key/value entry in a Params multimap.
type Pair struct {
	Key   string
	Value string
}

// Params is an ordered multimap of request parameters. It abstracts over
// query-string and form-body encoding: both produce the same shape. The
// zero value is an empty, usable Params.
//
// Insertion order is preserved, and a key may appear any number of times.
type Params struct {
	pairs  []Pair
	values map[string][]string
}

// NewParams creates an empty Params.
func NewParams() *Params {
	return &Params{values: make(map[string][]string)}
}

// ParseQuery parses a raw application/x-www-form-urlencoded string
// (query string or form body) into Params, preserving the order of the
// encoded pairs. Unlike url.ParseQuery it does not discard ordering.
// A malformed percent-escape makes the whole parse fail.
func ParseQuery(raw string) (*Params, error) {
	p := NewParams()
	for raw != "" {
		var part string
		part, raw, _ = strings.Cut(raw, "&")
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("parsing parameter key: %w", err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("parsing parameter value for %q: %w", key, err)
		}
		p.Add(key, value)
	}
	return p, nil
}

// Add appends a key/value pair, keeping earlier values for the same key.
func (p *Params) Add(key, value string) {
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	p.pairs = append(p.pairs, Pair{Key: key, Value: value})
	p.values[key] = append(p.values[key], value)
}

// Get returns the first value recorded for key, or "" if absent.
func (p *Params) Get(key string) string {
	if vs := p.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Values returns all values recorded for key in insertion order.
// The returned slice must not be modified.
func (p *Params) Values(key string) []string {
	return p.values[key]
}

// Unique returns the value for key only if exactly one value was
// recorded. Zero or repeated values report ok == false; OAuth2 treats a
// repeated parameter the same as a missing one.
func (p *Params) Unique(key string) (value string, ok bool) {
	vs := p.values[key]
	if len(vs) != 1 {
		return "", false
	}
	return vs[0], true
}

// Pairs returns every key/value entry in insertion order.
// The returned slice must not be modified.
func (p *Params) Pairs() []Pair {
	return p.pairs
}

// Len returns the number of key/value entries.
func (p *Params) Len() int {
	return len(p.pairs)
}

// Encode serializes the parameters back to x-www-form-urlencoded form,
// in insertion order.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, pair := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}
	return b.String()
}
