package localfs

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kirillkom/graphrag-search/internal/core/domain"
)

type graphMLDocument struct {
	Keys   []graphMLKey   `xml:"key"`
	Graphs []graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID      string `xml:"id,attr"`
	For     string `xml:"for,attr"`
	Name    string `xml:"attr.name,attr"`
	Default string `xml:"default"`
}

type graphMLGraph struct {
	Nodes []graphMLNode `xml:"node"`
	Edges []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphMLData `xml:"data"`
}

type graphMLEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphMLData `xml:"data"`
}

type graphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// decodeGraphML reads nodes and edges from a GraphML document, resolving
// data keys to their attribute names. Node ids are entity ids; a "name"
// attribute, when present, overrides the displayed name.
func decodeGraphML(r io.Reader) ([]domain.Entity, []domain.Relationship, error) {
	var doc graphMLDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode graphml: %w", err)
	}

	keys := make(map[string]graphMLKey, len(doc.Keys))
	for _, k := range doc.Keys {
		keys[k.ID] = k
	}

	var (
		nodes []domain.Entity
		edges []domain.Relationship
	)
	for _, g := range doc.Graphs {
		for _, n := range g.Nodes {
			attrs := resolveAttrs(keys, "node", n.Data)
			name := attrs["name"]
			if name == "" {
				name = n.ID
			}
			nodes = append(nodes, domain.Entity{
				ID:          n.ID,
				Name:        name,
				Type:        attrs["type"],
				Description: attrs["description"],
			})
		}
		for _, e := range g.Edges {
			attrs := resolveAttrs(keys, "edge", e.Data)
			weight := 1.0
			if raw := strings.TrimSpace(attrs["weight"]); raw != "" {
				w, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					return nil, nil, fmt.Errorf("edge %s-%s: parse weight %q: %w", e.Source, e.Target, raw, err)
				}
				weight = w
			}
			edges = append(edges, domain.Relationship{
				SourceID:     e.Source,
				TargetID:     e.Target,
				Relationship: attrs["relationship"],
				Description:  attrs["description"],
				Weight:       weight,
			})
		}
	}
	return nodes, edges, nil
}

func resolveAttrs(keys map[string]graphMLKey, kind string, data []graphMLData) map[string]string {
	attrs := make(map[string]string, len(data))
	for _, k := range keys {
		if (k.For == kind || k.For == "all") && k.Default != "" {
			attrs[attrName(k)] = strings.TrimSpace(k.Default)
		}
	}
	for _, d := range data {
		name := d.Key
		if k, ok := keys[d.Key]; ok {
			name = attrName(k)
		}
		attrs[name] = strings.TrimSpace(d.Value)
	}
	return attrs
}

func attrName(k graphMLKey) string {
	if k.Name != "" {
		return k.Name
	}
	return k.ID
}
