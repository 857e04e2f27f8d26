// Package xmltree builds a small element tree over encoding/xml and resolves
// namespace-qualified element paths against it.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrNoRoot is returned when a document holds no element at all.
var ErrNoRoot = errors.New("xmltree: document has no root element")

// Node is one element of a parsed document. Text holds the element's own
// character data, not that of its descendants.
type Node struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Text     string
	Children []*Node
}

// Parse reads a whole document and returns its root element.
func Parse(r io.Reader) (*Node, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
		text  []*strings.Builder
	)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name, Attrs: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			} else if root == nil {
				root = n
			}
			stack = append(stack, n)
			text = append(text, &strings.Builder{})
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.Text = text[len(text)-1].String()
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
			if len(stack) == 0 {
				return root, nil
			}
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return nil, fmt.Errorf("xmltree: parse: unexpected end of document inside <%s>", stack[len(stack)-1].Name.Local)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Node, error) {
	return Parse(bytes.NewReader(b))
}

// Is reports whether the node is the element local in namespace ns.
func (n *Node) Is(ns, local string) bool {
	return n != nil && n.Name.Space == ns && n.Name.Local == local
}

// Attr returns the value of the first attribute with the given local name.
func (n *Node) Attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// TrimmedText returns the node's own text without surrounding whitespace.
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}

// Path is a sequence of element local names. A segment may name several
// alternatives separated by "|"; any of them matches.
type Path []string

// ParsePath splits a slash separated path such as "values/singleValue".
func ParsePath(s string) Path {
	s = strings.Trim(s, "/")
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "/"))
}

// Qualified renders the path in Clark notation for diagnostics,
// e.g. "{http://www.opengis.net/wcs}name".
func (p Path) Qualified(ns string) string {
	parts := make([]string, len(p))
	for i, seg := range p {
		if ns == "" {
			parts[i] = seg
			continue
		}
		parts[i] = "{" + ns + "}" + seg
	}
	return strings.Join(parts, "/")
}

func (p Path) String() string { return strings.Join(p, "/") }

// FindAll resolves p relative to n, qualifying every segment with ns.
// Matches are returned in document order.
func (n *Node) FindAll(ns string, p Path) []*Node {
	if n == nil || len(p) == 0 {
		return nil
	}
	current := []*Node{n}
	for _, seg := range p {
		alts := strings.Split(seg, "|")
		var next []*Node
		for _, parent := range current {
			for _, c := range parent.Children {
				if matches(c, ns, alts) {
					next = append(next, c)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func matches(n *Node, ns string, alts []string) bool {
	if n.Name.Space != ns {
		return false
	}
	for _, a := range alts {
		if n.Name.Local == a {
			return true
		}
	}
	return false
}
