package oaipmh

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Attr is one attribute of a metadata node. Key carries the namespace URI
// in Clark notation ("{namespace}local") when the attribute is qualified,
// the bare local name otherwise.
type Attr struct {
	Key   string
	Value string
}

// Node is one element of a parsed metadata payload. The tree is built
// without schema knowledge so it can represent Dublin Core plus arbitrary
// extension elements.
type Node struct {
	Name     string // local element name
	Space    string // namespace URI, may be empty
	Text     string
	Attrs    []Attr
	Children []Node
}

// Child returns the direct children with the given local name.
func (n Node) Child(name string) []Node {
	var out []Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Record is the parsed metadata of a single harvested object: repeatable
// fields keyed by their local element name, kept in document order.
type Record struct {
	Fields map[string][]Node
	Order  []string // field names in first-seen order
}

// Get returns the nodes of one repeatable field, nil when absent.
func (r *Record) Get(name string) []Node {
	return r.Fields[name]
}

// Values returns the trimmed text of every node of one repeatable field.
func (r *Record) Values(name string) []string {
	nodes := r.Fields[name]
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(n.Text))
	}
	return out
}

// xmlNode is the raw decoding target for arbitrary namespaced XML.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (x xmlNode) toNode() Node {
	n := Node{
		Name:  x.XMLName.Local,
		Space: x.XMLName.Space,
		Text:  strings.TrimSpace(x.Content),
	}
	for _, a := range x.Attrs {
		key := a.Name.Local
		if a.Name.Space != "" {
			key = fmt.Sprintf("{%s}%s", a.Name.Space, a.Name.Local)
		}
		n.Attrs = append(n.Attrs, Attr{Key: key, Value: a.Value})
	}
	for _, c := range x.Nodes {
		n.Children = append(n.Children, c.toNode())
	}
	return n
}

// ParseMetadata parses the metadata payload of a GetRecord response. The
// payload root is the format container (e.g. oai_dc:dc); its direct
// children become the record's repeatable fields.
func ParseMetadata(data []byte) (*Record, error) {
	var root xmlNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	container := root
	// GetRecord payloads sometimes arrive wrapped in the surrounding
	// record or metadata element.
	for container.XMLName.Local == "record" || container.XMLName.Local == "metadata" {
		var next *xmlNode
		for i := range container.Nodes {
			if container.Nodes[i].XMLName.Local == "header" {
				continue
			}
			next = &container.Nodes[i]
			break
		}
		if next == nil {
			return nil, fmt.Errorf("metadata payload has no format container")
		}
		container = *next
	}

	if len(container.Nodes) == 0 {
		return nil, fmt.Errorf("metadata container %q has no fields", container.XMLName.Local)
	}

	rec := &Record{Fields: make(map[string][]Node)}
	for _, raw := range container.Nodes {
		node := raw.toNode()
		if _, seen := rec.Fields[node.Name]; !seen {
			rec.Order = append(rec.Order, node.Name)
		}
		rec.Fields[node.Name] = append(rec.Fields[node.Name], node)
	}
	return rec, nil
}
