package utils

// CreateRankList creates a slice of ranks based on position.
// The rank starts at 1 for the first item and increments for subsequent items.
// Items that share a key share a rank, so equal scores read as ties.
func CreateRankList(keys []int) []int {
	if len(keys) == 0 {
		return []int{}
	}
	ranks := make([]int, len(keys))
	for i := range keys {
		if i > 0 && keys[i] == keys[i-1] {
			ranks[i] = ranks[i-1]
			continue
		}
		ranks[i] = i + 1
	}
	return ranks
}
