package graphml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

const xmlns = "http://graphml.graphdrawing.org/xmlns"

type xmlDocument struct {
	XMLName xml.Name   `xml:"graphml"`
	Xmlns   string     `xml:"xmlns,attr"`
	Keys    []xmlKey   `xml:"key"`
	Graphs  []xmlGraph `xml:"graph"`
}

type xmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type xmlGraph struct {
	ID          string    `xml:"id,attr"`
	EdgeDefault string    `xml:"edgedefault,attr"`
	Data        []xmlData `xml:"data"`
	Nodes       []xmlNode `xml:"node"`
	Edges       []xmlEdge `xml:"edge"`
}

type xmlNode struct {
	ID    string    `xml:"id,attr"`
	Data  []xmlData `xml:"data"`
	Ports []xmlPort `xml:"port"`
	Graph *xmlGraph `xml:"graph"`
}

type xmlPort struct {
	Name string    `xml:"name,attr"`
	Data []xmlData `xml:"data"`
}

type xmlEdge struct {
	Source     string    `xml:"source,attr"`
	Target     string    `xml:"target,attr"`
	SourcePort string    `xml:"sourceport,attr,omitempty"`
	TargetPort string    `xml:"targetport,attr,omitempty"`
	Data       []xmlData `xml:"data"`
}

type xmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Data keys. Key IDs double as attribute names so documents stay readable.
const (
	keyInputID         = "input_id"
	keyOutputID        = "output_id"
	keyQualName        = "qual_name"
	keyModule          = "module"
	keyAnnotation      = "annotation"
	keyAnnotationKind  = "annotation_kind"
	keyAnnotationIndex = "annotation_index"
	keySlot            = "slot"
	keyConstruct       = "construct"
	keyArgName         = "arg_name"
	keyPortKind        = "kind"
	keyObjectID        = "object_id"
	keyValue           = "value"
	keyTypeModule      = "type_module"
	keyTypeQualName    = "type_qual_name"
)

func keyDefs() []xmlKey {
	return []xmlKey{
		{ID: keyInputID, For: "graph", AttrName: keyInputID, AttrType: "string"},
		{ID: keyOutputID, For: "graph", AttrName: keyOutputID, AttrType: "string"},
		{ID: keyQualName, For: "node", AttrName: keyQualName, AttrType: "string"},
		{ID: keyModule, For: "node", AttrName: keyModule, AttrType: "string"},
		{ID: keyAnnotationKind, For: "node", AttrName: keyAnnotationKind, AttrType: "string"},
		{ID: keySlot, For: "node", AttrName: keySlot, AttrType: "string"},
		{ID: keyConstruct, For: "node", AttrName: keyConstruct, AttrType: "boolean"},
		{ID: keyAnnotation, For: "all", AttrName: keyAnnotation, AttrType: "string"},
		{ID: keyAnnotationIndex, For: "all", AttrName: keyAnnotationIndex, AttrType: "int"},
		{ID: keyObjectID, For: "all", AttrName: keyObjectID, AttrType: "string"},
		{ID: keyArgName, For: "port", AttrName: keyArgName, AttrType: "string"},
		{ID: keyPortKind, For: "port", AttrName: keyPortKind, AttrType: "string"},
		{ID: keyValue, For: "port", AttrName: keyValue, AttrType: "string"},
		{ID: keyTypeModule, For: "port", AttrName: keyTypeModule, AttrType: "string"},
		{ID: keyTypeQualName, For: "port", AttrName: keyTypeQualName, AttrType: "string"},
	}
}

// Write serializes a document as GraphML.
func Write(w io.Writer, d *Document) error {
	if d == nil || d.Root == nil || d.Root.Graph == nil {
		return ErrNilDocument
	}
	rootNode, err := encodeNode(d.Root)
	if err != nil {
		return err
	}
	doc := xmlDocument{
		Xmlns: xmlns,
		Keys:  keyDefs(),
		Graphs: []xmlGraph{{
			ID:          "G",
			EdgeDefault: "directed",
			Nodes:       []xmlNode{*rootNode},
		}},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding graphml: %w", err)
	}
	return enc.Close()
}

func encodeGraph(g *flow.Graph, id string) (*xmlGraph, error) {
	xg := &xmlGraph{
		ID:          id,
		EdgeDefault: "directed",
		Data: []xmlData{
			{Key: keyInputID, Value: g.InputID},
			{Key: keyOutputID, Value: g.OutputID},
		},
	}
	for _, node := range g.NodesInOrder() {
		xn, err := encodeNode(node)
		if err != nil {
			return nil, err
		}
		xg.Nodes = append(xg.Nodes, *xn)
	}
	for _, e := range g.Edges {
		xe := xmlEdge{
			Source:     e.Source,
			Target:     e.Target,
			SourcePort: e.SourcePort,
			TargetPort: e.TargetPort,
			Data:       []xmlData{{Key: keyObjectID, Value: e.ObjectID}},
		}
		if e.Annotation != "" {
			xe.Data = append(xe.Data, xmlData{Key: keyAnnotation, Value: e.Annotation})
		}
		xg.Edges = append(xg.Edges, xe)
	}
	return xg, nil
}

func encodeNode(n *flow.Node) (*xmlNode, error) {
	xn := &xmlNode{ID: n.ID}
	setIf := func(key, value string) {
		if value != "" {
			xn.Data = append(xn.Data, xmlData{Key: key, Value: value})
		}
	}
	setIf(keyQualName, n.QualName)
	setIf(keyModule, n.Module)
	setIf(keyAnnotation, n.Annotation)
	setIf(keyAnnotationKind, string(n.AnnotationKind))
	if n.AnnotationIndex != 0 {
		setIf(keyAnnotationIndex, strconv.Itoa(n.AnnotationIndex))
	}
	setIf(keySlot, n.Slot)
	if n.Construct {
		setIf(keyConstruct, "true")
	}
	for _, p := range n.Ports {
		xp, err := encodePort(p)
		if err != nil {
			return nil, err
		}
		xn.Ports = append(xn.Ports, *xp)
	}
	if n.Graph != nil {
		sub, err := encodeGraph(n.Graph, n.ID+":graph")
		if err != nil {
			return nil, err
		}
		xn.Graph = sub
	}
	return xn, nil
}

func encodePort(p *flow.Port) (*xmlPort, error) {
	xp := &xmlPort{
		Name: p.Name,
		Data: []xmlData{{Key: keyPortKind, Value: string(p.Kind)}},
	}
	setIf := func(key, value string) {
		if value != "" {
			xp.Data = append(xp.Data, xmlData{Key: key, Value: value})
		}
	}
	setIf(keyArgName, p.ArgName)
	setIf(keyObjectID, p.ObjectID)
	if p.Value != nil {
		encoded, err := encodeValue(p.Value.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding port %q value: %w", p.Name, err)
		}
		xp.Data = append(xp.Data, xmlData{Key: keyValue, Value: encoded})
	}
	if p.Type != nil {
		setIf(keyTypeModule, p.Type.Module)
		setIf(keyTypeQualName, p.Type.QualName)
	}
	setIf(keyAnnotation, p.Annotation)
	if p.AnnotationIndex != 0 {
		setIf(keyAnnotationIndex, strconv.Itoa(p.AnnotationIndex))
	}
	return xp, nil
}
