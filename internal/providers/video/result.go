package video

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

var schemeRegexp = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// ExtractResultURL finds the result locator in a status payload whose shape
// is not fixed. The usual output shapes are checked first; otherwise the
// whole document is walked depth first in source key order and the first
// string under a url/uri key, or any string carrying a URL scheme, wins.
// It reports false rather than failing when nothing matches.
func ExtractResultURL(payload []byte) (string, bool) {
	root, err := parseOrdered(payload)
	if err != nil || root == nil {
		return "", false
	}
	if out := root.field("output"); out != nil {
		if u, ok := fromOutput(out); ok {
			return u, true
		}
	}
	return walk(root)
}

func fromOutput(out *jsonNode) (string, bool) {
	switch out.kind {
	case kindString:
		return nonEmpty(out.str)
	case kindArray:
		for _, item := range out.items {
			switch item.kind {
			case kindString:
				if u, ok := nonEmpty(item.str); ok {
					return u, true
				}
			case kindObject:
				if u, ok := locatorField(item); ok {
					return u, true
				}
			}
		}
	case kindObject:
		return locatorField(out)
	}
	return "", false
}

func locatorField(obj *jsonNode) (string, bool) {
	for i, key := range obj.keys {
		if isLocatorKey(key) && obj.vals[i].kind == kindString {
			if u, ok := nonEmpty(obj.vals[i].str); ok {
				return u, true
			}
		}
	}
	return "", false
}

func walk(n *jsonNode) (string, bool) {
	switch n.kind {
	case kindString:
		if schemeRegexp.MatchString(strings.TrimSpace(n.str)) {
			return strings.TrimSpace(n.str), true
		}
	case kindArray:
		for _, item := range n.items {
			if u, ok := walk(item); ok {
				return u, true
			}
		}
	case kindObject:
		for i, key := range n.keys {
			v := n.vals[i]
			if isLocatorKey(key) && v.kind == kindString {
				if u, ok := nonEmpty(v.str); ok {
					return u, true
				}
			}
			if u, ok := walk(v); ok {
				return u, true
			}
		}
	}
	return "", false
}

func isLocatorKey(key string) bool {
	k := strings.ToLower(key)
	return k == "url" || k == "uri"
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

type nodeKind int

const (
	kindNull nodeKind = iota
	kindString
	kindScalar
	kindArray
	kindObject
)

// jsonNode keeps object members in document order, which map decoding loses.
type jsonNode struct {
	kind  nodeKind
	str   string
	keys  []string
	vals  []*jsonNode
	items []*jsonNode
}

func (n *jsonNode) field(name string) *jsonNode {
	if n.kind != kindObject {
		return nil
	}
	for i, key := range n.keys {
		if key == name {
			return n.vals[i]
		}
	}
	return nil
}

func parseOrdered(data []byte) (*jsonNode, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after json value")
	}
	return root, nil
}

func parseValue(dec *json.Decoder) (*jsonNode, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &jsonNode{kind: kindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.New("object key is not a string")
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.vals = append(n.vals, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &jsonNode{kind: kindArray}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.items = append(n.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, errors.New("unexpected delimiter")
	case string:
		return &jsonNode{kind: kindString, str: t}, nil
	case nil:
		return &jsonNode{kind: kindNull}, nil
	default:
		return &jsonNode{kind: kindScalar}, nil
	}
}
