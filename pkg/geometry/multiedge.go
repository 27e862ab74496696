package geometry

// Pair is an edge's endpoints by node identifier.
type Pair struct {
	Source, Target string
}

// Link is the multi-edge rank assigned to one edge.
type Link struct {
	Index int // 0-based rank among edges sharing the unordered pair
	Count int // total edges sharing the pair

	// Reversed is set when the edge runs against the canonical (sorted)
	// orientation of its pair, so that A->B and B->A edges bend to
	// opposite sides of the same chord.
	Reversed bool
}

// AssignLinkIndices ranks edges that share an unordered node pair in
// arrival order. The result is parallel to pairs.
func AssignLinkIndices(pairs []Pair) []Link {
	links := make([]Link, len(pairs))
	counts := make(map[[2]string]int, len(pairs))

	for i, p := range pairs {
		key, reversed := pairKey(p.Source, p.Target)
		links[i] = Link{Index: counts[key], Reversed: reversed}
		counts[key]++
	}
	for i, p := range pairs {
		key, _ := pairKey(p.Source, p.Target)
		links[i].Count = counts[key]
	}
	return links
}

func pairKey(a, b string) ([2]string, bool) {
	if b < a {
		return [2]string{b, a}, true
	}
	return [2]string{a, b}, false
}
