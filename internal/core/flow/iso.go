package flow

import "sort"

// IsoOptions controls graph matching.
type IsoOptions struct {
	// IgnoreIDs makes edge matching identity-blind: edges are compared by
	// source and target port only. Used when comparing captures of separate
	// runs, where object identities necessarily differ.
	IgnoreIDs bool
}

// IsIsomorphic reports whether two flow graphs are isomorphic under
// categorical attribute matching: nodes match on (QualName, Slot), edges
// match on (ObjectID unless identity-blind, SourcePort, TargetPort), and the
// boundary sentinels of one graph must map onto those of the other.
//
// Matching is exact on edge multiplicity, so parallel edges are compared as
// multisets. Nested graphs are not descended into; compare them explicitly.
func IsIsomorphic(a, b *Graph, opts IsoOptions) bool {
	if len(a.Nodes) != len(b.Nodes) || len(a.Edges) != len(b.Edges) {
		return false
	}

	// Candidate sets: nodes of b grouped by attribute signature.
	bySig := make(map[string][]string)
	for _, bn := range b.NodesInOrder() {
		sig := nodeSig(bn)
		bySig[sig] = append(bySig[sig], bn.ID)
	}
	for _, an := range a.NodesInOrder() {
		sig := nodeSig(an)
		if len(bySig[sig]) == 0 {
			return false
		}
	}

	mapping := map[string]string{a.InputID: b.InputID, a.OutputID: b.OutputID}
	used := map[string]bool{b.InputID: true, b.OutputID: true}
	return matchNodes(a, b, a.Order, 0, mapping, used, opts)
}

func matchNodes(a, b *Graph, order []string, i int, mapping map[string]string, used map[string]bool, opts IsoOptions) bool {
	if i == len(order) {
		return edgesMatch(a, b, mapping, opts)
	}
	an := a.Nodes[order[i]]
	sig := nodeSig(an)
	for _, bn := range b.NodesInOrder() {
		if used[bn.ID] || nodeSig(bn) != sig {
			continue
		}
		mapping[an.ID] = bn.ID
		used[bn.ID] = true
		if matchNodes(a, b, order, i+1, mapping, used, opts) {
			return true
		}
		delete(mapping, an.ID)
		used[bn.ID] = false
	}
	return false
}

func edgesMatch(a, b *Graph, mapping map[string]string, opts IsoOptions) bool {
	return edgeMultiset(a, mapping, opts) == edgeMultiset(b, nil, opts)
}

// edgeMultiset renders a graph's edges as a canonical sorted string. When a
// node mapping is supplied, endpoints are translated through it first.
func edgeMultiset(g *Graph, mapping map[string]string, opts IsoOptions) string {
	keys := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		src, dst := e.Source, e.Target
		if mapping != nil {
			src, dst = mapping[src], mapping[dst]
		}
		id := e.ObjectID
		if opts.IgnoreIDs {
			id = ""
		}
		keys = append(keys, src+"\x00"+dst+"\x00"+id+"\x00"+e.SourcePort+"\x00"+e.TargetPort)
	}
	sort.Strings(keys)
	joined := ""
	for _, k := range keys {
		joined += k + "\x01"
	}
	return joined
}

func nodeSig(n *Node) string {
	return n.QualName + "\x00" + n.Slot
}
