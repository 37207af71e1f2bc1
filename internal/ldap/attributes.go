package ldap

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Attributes is one directory entry. Names are case-insensitive, as in LDAP.
// Binary attributes keep their raw bytes.
type Attributes struct {
	DN     string
	values map[string][]string
	raw    map[string][][]byte
	names  map[string]string // lower-case key -> name as first seen
}

// NewAttributes creates an empty entry.
func NewAttributes(dn string) *Attributes {
	return &Attributes{
		DN:     dn,
		values: make(map[string][]string),
		raw:    make(map[string][][]byte),
		names:  make(map[string]string),
	}
}

// FromEntry copies a search result entry. Attributes listed in binary are
// also kept as raw bytes.
func FromEntry(entry *ldap.Entry, binary ...string) *Attributes {
	attrs := NewAttributes(entry.DN)
	isBinary := make(map[string]bool, len(binary))
	for _, name := range binary {
		isBinary[strings.ToLower(name)] = true
	}

	for _, attr := range entry.Attributes {
		attrs.Set(attr.Name, attr.Values...)
		if isBinary[strings.ToLower(attr.Name)] {
			for _, b := range attr.ByteValues {
				attrs.AddBytes(attr.Name, b)
			}
		}
	}
	return attrs
}

// Get returns the first value of name, or "".
func (a *Attributes) Get(name string) string {
	if name == "" {
		return ""
	}
	if v := a.values[strings.ToLower(name)]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// GetAll returns every value of name.
func (a *Attributes) GetAll(name string) []string {
	return a.values[strings.ToLower(name)]
}

// GetBytes returns the first raw value of a binary attribute.
func (a *Attributes) GetBytes(name string) []byte {
	if name == "" {
		return nil
	}
	if v := a.raw[strings.ToLower(name)]; len(v) > 0 {
		return v[0]
	}
	return nil
}

// Has reports whether name carries at least one value.
func (a *Attributes) Has(name string) bool {
	key := strings.ToLower(name)
	return len(a.values[key]) > 0 || len(a.raw[key]) > 0
}

// Set replaces the values of name.
func (a *Attributes) Set(name string, values ...string) {
	key := strings.ToLower(name)
	if _, ok := a.names[key]; !ok {
		a.names[key] = name
	}
	a.values[key] = append([]string(nil), values...)
}

// AddBytes appends a raw value to a binary attribute.
func (a *Attributes) AddBytes(name string, value []byte) {
	key := strings.ToLower(name)
	if _, ok := a.names[key]; !ok {
		a.names[key] = name
	}
	a.raw[key] = append(a.raw[key], append([]byte(nil), value...))
}

// Remove deletes name.
func (a *Attributes) Remove(name string) {
	key := strings.ToLower(name)
	delete(a.values, key)
	delete(a.raw, key)
	delete(a.names, key)
}

// Names returns the attribute names, sorted.
func (a *Attributes) Names() []string {
	out := make([]string, 0, len(a.names))
	for _, name := range a.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Clone returns a deep copy.
func (a *Attributes) Clone() *Attributes {
	c := NewAttributes(a.DN)
	for key, name := range a.names {
		c.names[key] = name
	}
	for key, v := range a.values {
		c.values[key] = append([]string(nil), v...)
	}
	for key, v := range a.raw {
		for _, b := range v {
			c.raw[key] = append(c.raw[key], append([]byte(nil), b...))
		}
	}
	return c
}

// Transformer rewrites raw attributes before they are mapped.
type Transformer interface {
	TransformUser(attrs *Attributes) (*Attributes, error)
	TransformGroup(attrs *Attributes) (*Attributes, error)
}

// IdentityTransformer returns attributes unchanged.
type IdentityTransformer struct{}

func (IdentityTransformer) TransformUser(attrs *Attributes) (*Attributes, error)  { return attrs, nil }
func (IdentityTransformer) TransformGroup(attrs *Attributes) (*Attributes, error) { return attrs, nil }
