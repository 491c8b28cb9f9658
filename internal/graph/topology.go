package graph

import "sort"

// HubNode is a note with high connectivity
type HubNode struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []string       `json:"orphan_ids"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
	KindCounts        map[string]int `json:"kind_counts"`
	ManualEdges       int            `json:"manual_edges"`
}

// ComputeTopology analyzes graph topology: components, orphans, degree
// distribution, hubs and edge kinds. Degree counts distinct neighbours.
func ComputeTopology(snap *GraphSnapshot, hubThreshold, topN int) *TopologyReport {
	totalNodes := len(snap.Nodes)
	totalEdges := len(snap.Edges)

	kinds := make(map[string]int)
	manual := 0
	for _, e := range snap.Edges {
		kinds[string(e.Kind)]++
		if !e.AutoGenerated {
			manual++
		}
	}

	if totalNodes == 0 {
		return &TopologyReport{
			DegreeHistogram: defaultHistogram(),
			KindCounts:      kinds,
		}
	}

	// Connected components
	nodeIDs := snap.NodeIDs()
	index := make(map[string]int, len(nodeIDs))
	for i, id := range nodeIDs {
		index[id] = i
	}
	uf := newUnionFind(len(nodeIDs))
	for _, e := range snap.Edges {
		uf.union(index[e.Source], index[e.Target])
	}

	sizes := uf.componentSizes()
	largest, smallest := 0, totalNodes
	for _, size := range sizes {
		if size > largest {
			largest = size
		}
		if size < smallest {
			smallest = size
		}
	}

	// Orphans: no neighbours
	var orphans []string
	for _, id := range nodeIDs {
		if len(snap.Adj[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	orphanCount := len(orphans)
	if topN > 0 && len(orphans) > topN {
		orphans = orphans[:topN]
	}

	// Degree histogram (log-scale buckets)
	buckets := [7]int{}
	for _, id := range nodeIDs {
		buckets[degreeBucket(len(snap.Adj[id]))]++
	}
	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	// Hubs: degree > threshold
	var hubs []HubNode
	for _, id := range nodeIDs {
		degree := len(snap.Adj[id])
		if degree > hubThreshold {
			hubs = append(hubs, HubNode{
				ID:        id,
				Title:     snap.Nodes[id].Title,
				Degree:    degree,
				InDegree:  len(snap.InAdj[id]),
				OutDegree: len(snap.OutAdj[id]),
			})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].Degree > hubs[j].Degree })
	if topN > 0 && len(hubs) > topN {
		hubs = hubs[:topN]
	}

	return &TopologyReport{
		TotalNodes:        totalNodes,
		TotalEdges:        totalEdges,
		NumComponents:     len(sizes),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		OrphanCount:       orphanCount,
		OrphanIDs:         orphans,
		DegreeHistogram:   histogram,
		Hubs:              hubs,
		KindCounts:        kinds,
		ManualEdges:       manual,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
