package graphml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

// Read parses a GraphML document written by Write.
func Read(r io.Reader) (*Document, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding graphml: %w", err)
	}
	if len(doc.Graphs) == 0 || len(doc.Graphs[0].Nodes) == 0 {
		return nil, ErrNoRootNode
	}
	root, err := decodeNode(&doc.Graphs[0].Nodes[0])
	if err != nil {
		return nil, err
	}
	if root.Graph == nil {
		return nil, ErrNoRootNode
	}
	return &Document{Root: root}, nil
}

func decodeGraph(xg *xmlGraph) (*flow.Graph, error) {
	data := dataMap(xg.Data)
	g := &flow.Graph{
		InputID:  data[keyInputID],
		OutputID: data[keyOutputID],
		Nodes:    make(map[string]*flow.Node, len(xg.Nodes)),
	}
	if g.InputID == "" || g.OutputID == "" {
		return nil, ErrMissingSentinels
	}
	for i := range xg.Nodes {
		node, err := decodeNode(&xg.Nodes[i])
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(node); err != nil {
			return nil, fmt.Errorf("graph %q: %w", xg.ID, err)
		}
	}
	for i := range xg.Edges {
		xe := &xg.Edges[i]
		edgeData := dataMap(xe.Data)
		edge := &flow.Edge{
			Source:     xe.Source,
			Target:     xe.Target,
			SourcePort: xe.SourcePort,
			TargetPort: xe.TargetPort,
			ObjectID:   edgeData[keyObjectID],
			Annotation: edgeData[keyAnnotation],
		}
		if err := g.AddEdge(edge); err != nil {
			return nil, fmt.Errorf("graph %q: %w", xg.ID, err)
		}
	}
	return g, nil
}

func decodeNode(xn *xmlNode) (*flow.Node, error) {
	data := dataMap(xn.Data)
	node := &flow.Node{
		ID:             xn.ID,
		QualName:       data[keyQualName],
		Module:         data[keyModule],
		Annotation:     data[keyAnnotation],
		AnnotationKind: flow.AnnotationKind(data[keyAnnotationKind]),
		Slot:           data[keySlot],
		Construct:      data[keyConstruct] == "true",
	}
	if raw, ok := data[keyAnnotationIndex]; ok {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("node %q: invalid annotation index: %w", xn.ID, err)
		}
		node.AnnotationIndex = idx
	}
	for i := range xn.Ports {
		port, err := decodePort(&xn.Ports[i])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", xn.ID, err)
		}
		node.Ports = append(node.Ports, port)
	}
	if xn.Graph != nil {
		sub, err := decodeGraph(xn.Graph)
		if err != nil {
			return nil, err
		}
		node.Graph = sub
	}
	return node, nil
}

func decodePort(xp *xmlPort) (*flow.Port, error) {
	data := dataMap(xp.Data)
	port := &flow.Port{
		Name:       xp.Name,
		ArgName:    data[keyArgName],
		Kind:       flow.PortKind(data[keyPortKind]),
		ObjectID:   data[keyObjectID],
		Annotation: data[keyAnnotation],
	}
	if raw, ok := data[keyValue]; ok {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("port %q: invalid value: %w", xp.Name, err)
		}
		port.Value = &flow.Value{Data: v}
	}
	if qualName, ok := data[keyTypeQualName]; ok {
		port.Type = &flow.TypeRef{
			Module:   data[keyTypeModule],
			QualName: qualName,
		}
	}
	if raw, ok := data[keyAnnotationIndex]; ok {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("port %q: invalid annotation index: %w", xp.Name, err)
		}
		port.AnnotationIndex = idx
	}
	return port, nil
}

// dataMap flattens <data> elements into a lookup keyed by GraphML key ID.
func dataMap(data []xmlData) map[string]string {
	m := make(map[string]string, len(data))
	for _, d := range data {
		m[d.Key] = d.Value
	}
	return m
}
