package plex

import (
	"net/url"
	"strconv"
	"strings"
)

// Query is an ordered list of query parameters. Unlike url.Values it keeps
// insertion order when encoded, which the server-side parsers and our tests
// both rely on.
type Query struct {
	pairs []queryPair
}

type queryPair struct {
	key   string
	value string
}

// NewQuery returns an empty Query.
func NewQuery() Query {
	return Query{}
}

// Set appends key=value.
func (q Query) Set(key, value string) Query {
	q.pairs = append(q.pairs[:len(q.pairs):len(q.pairs)], queryPair{key: key, value: value})
	return q
}

// SetInt appends an integer parameter.
func (q Query) SetInt(key string, value int64) Query {
	return q.Set(key, strconv.FormatInt(value, 10))
}

// SetBool appends a boolean parameter encoded as "1" or "0".
func (q Query) SetBool(key string, value bool) Query {
	return q.Set(key, BoolParam(value))
}

// Get returns the first value stored for key.
func (q Query) Get(key string) (string, bool) {
	for _, p := range q.pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// Len reports the number of parameters.
func (q Query) Len() int {
	return len(q.pairs)
}

// Encode renders the query in insertion order with URL escaping.
func (q Query) Encode() string {
	if len(q.pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// BoolParam renders a boolean the way the server expects it.
func BoolParam(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
