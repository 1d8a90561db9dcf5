package media

import "sort"

// SortingStrategy selects the field a listing is ordered by. Sources that
// cannot honor a strategy fall back to their backend's native order.
type SortingStrategy int

const (
	SortByCreationDate SortingStrategy = iota
	SortByModificationDate
	SortByName
	SortByArtistName
	SortByPlayCount
)

func (s SortingStrategy) String() string {
	switch s {
	case SortByCreationDate:
		return "creation_date"
	case SortByModificationDate:
		return "modification_date"
	case SortByName:
		return "name"
	case SortByArtistName:
		return "artist_name"
	case SortByPlayCount:
		return "play_count"
	default:
		return "unknown"
	}
}

// SortingRule is a strategy plus direction.
type SortingRule struct {
	Strategy SortingStrategy
	Reverse  bool
}

// SortedBy returns a copy of items stably sorted by less, reversed when
// requested. The input slice is never mutated.
func SortedBy[T any](items []T, reverse bool, less func(a, b T) bool) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
