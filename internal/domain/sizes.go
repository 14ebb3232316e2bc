package domain

import "sort"

// canonicalSizes is the garment-size progression used to order size labels
// for display. Labels outside the scale sort after it, alphabetically.
var canonicalSizes = []string{"XXS", "XS", "S", "M", "L", "XL", "XXL", "XXXL"}

// RankSizes orders size labels for presentation: labels on the canonical
// scale first, by their position on it, followed by every other label in
// lexicographic order. Ranking never filters; every input label is returned.
func RankSizes(sizes []string) []string {
	rank := make(map[string]int, len(canonicalSizes))
	for i, s := range canonicalSizes {
		rank[s] = i
	}

	known := make([]string, 0, len(sizes))
	var unknown []string
	for _, s := range sizes {
		if _, ok := rank[s]; ok {
			known = append(known, s)
		} else {
			unknown = append(unknown, s)
		}
	}

	sort.Slice(known, func(i, j int) bool { return rank[known[i]] < rank[known[j]] })
	sort.Strings(unknown)

	return append(known, unknown...)
}
