package partition

import (
	"math/rand/v2"
	"slices"
)

// Groups builds one client per distinct grouping key (a device or subject id),
// in sorted key order.
func Groups(keys []string) [][]int {
	pos := make(map[string][]int)
	for i, k := range keys {
		pos[k] = append(pos[k], i)
	}
	names := make([]string, 0, len(pos))
	for k := range pos {
		names = append(names, k)
	}
	slices.Sort(names)

	out := make([][]int, len(names))
	for i, k := range names {
		out[i] = pos[k]
	}

	return out
}

// Subdivide splits every group into nclients/len(groups) shuffled chunks when
// there are fewer groups than clients. Chunk sizes differ by at most one.
func Subdivide(groups [][]int, nclients int, src rand.Source) ([][]int, error) {
	if nclients <= 0 {
		return nil, ErrNoClients
	}
	if len(groups) == 0 || len(groups) >= nclients {
		return groups, nil
	}
	nsplits := nclients / len(groups)
	rng := rand.New(src)

	out := make([][]int, 0, nsplits*len(groups))
	for _, g := range groups {
		perm := slices.Clone(g)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		out = append(out, arraySplit(perm, nsplits)...)
	}

	return out, nil
}

// arraySplit cuts s into k nearly equal parts; the first len(s)%k parts hold one
// extra element.
func arraySplit(s []int, k int) [][]int {
	out := make([][]int, k)
	size, extra := len(s)/k, len(s)%k
	start := 0
	for i := range out {
		n := size
		if i < extra {
			n++
		}
		out[i] = s[start : start+n]
		start += n
	}

	return out
}
