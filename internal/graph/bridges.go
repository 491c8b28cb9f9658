package graph

// BridgeNote is a note whose removal splits its cluster
type BridgeNote struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Neighbours int    `json:"neighbours"`
}

// BridgeLink is a relationship whose removal splits its cluster
type BridgeLink struct {
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	SourceTitle string `json:"source_title"`
	TargetTitle string `json:"target_title"`
}

// BridgeReport contains cut-vertex and cut-edge results
type BridgeReport struct {
	BridgeNotes []BridgeNote `json:"bridge_notes"`
	BridgeLinks []BridgeLink `json:"bridge_links"`
	NoteCount   int          `json:"bridge_note_count"`
	LinkCount   int          `json:"bridge_link_count"`
}

// ComputeBridges finds articulation points and bridges of the undirected
// neighbour graph (A->B and B->A count as one link).
func ComputeBridges(snap *GraphSnapshot) *BridgeReport {
	report := &BridgeReport{}
	if len(snap.Nodes) == 0 {
		return report
	}

	ids := snap.NodeIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	n := len(ids)
	adj := make([][]int, n)
	for i, id := range ids {
		for _, other := range snap.Adj[id] {
			adj[i] = append(adj[i], index[other])
		}
	}

	// Iterative Tarjan: disc is discovery order (0 = unvisited), low is the
	// earliest discovery reachable through one back edge.
	disc := make([]int, n)
	low := make([]int, n)
	cut := make([]bool, n)
	var links [][2]int
	clock := 0

	type frame struct{ node, parent, next int }

	for root := 0; root < n; root++ {
		if disc[root] != 0 {
			continue
		}
		clock++
		disc[root], low[root] = clock, clock
		stack := []frame{{node: root, parent: -1}}
		rootChildren := 0

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(adj[f.node]) {
				child := adj[f.node][f.next]
				f.next++
				switch {
				case child == f.parent:
				case disc[child] != 0:
					low[f.node] = min(low[f.node], disc[child])
				default:
					clock++
					disc[child], low[child] = clock, clock
					if f.node == root {
						rootChildren++
					}
					stack = append(stack, frame{node: child, parent: f.node})
				}
				continue
			}

			done := f.node
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				break
			}
			up := stack[len(stack)-1].node
			low[up] = min(low[up], low[done])
			if low[done] > disc[up] {
				links = append(links, [2]int{up, done})
			}
			if up != root && low[done] >= disc[up] {
				cut[up] = true
			}
		}
		if rootChildren > 1 {
			cut[root] = true
		}
	}

	for i, isCut := range cut {
		if !isCut {
			continue
		}
		report.BridgeNotes = append(report.BridgeNotes, BridgeNote{
			ID:         ids[i],
			Title:      snap.Nodes[ids[i]].Title,
			Neighbours: len(adj[i]),
		})
	}
	for _, l := range links {
		src, tgt := ids[l[0]], ids[l[1]]
		report.BridgeLinks = append(report.BridgeLinks, BridgeLink{
			SourceID:    src,
			TargetID:    tgt,
			SourceTitle: snap.Nodes[src].Title,
			TargetTitle: snap.Nodes[tgt].Title,
		})
	}
	report.NoteCount = len(report.BridgeNotes)
	report.LinkCount = len(report.BridgeLinks)
	return report
}
