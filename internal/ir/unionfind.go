package ir

// UnionFind partitions values of any comparable type into disjoint sets.
// The zero value is ready to use.
type UnionFind[T comparable] struct {
	parent map[T]T
	rank   map[T]int
}

// Find returns the representative of x's set.
func (u *UnionFind[T]) Find(x T) T {
	if u.parent == nil {
		return x
	}
	root := x
	for {
		p, ok := u.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	// Second walk points every node on the path straight at the root.
	for x != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// Union merges the sets of a and b and returns the new representative.
func (u *UnionFind[T]) Union(a, b T) T {
	if u.parent == nil {
		u.parent = make(map[T]T)
		u.rank = make(map[T]int)
	}
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return ra
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if _, ok := u.parent[ra]; !ok {
		u.parent[ra] = ra
	}
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return ra
}
