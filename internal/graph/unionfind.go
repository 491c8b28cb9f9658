package graph

// unionFind is a disjoint-set forest over node indexes with path halving and
// union by size
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union merges the sets holding a and b. Returns true if they were separate.
func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return true
}

// componentSizes returns the size of every set
func (uf *unionFind) componentSizes() []int {
	var sizes []int
	for i := range uf.parent {
		if uf.find(i) == i {
			sizes = append(sizes, uf.size[i])
		}
	}
	return sizes
}
