package resources

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Reorder specifications accepted by ReorderPathInfos.
const (
	ReorderNone           = "none"
	ReorderPathAscending  = "path_ascending"
	ReorderPathDescending = "path_descending"
	ReorderSizeAscending  = "size_ascending"
	ReorderSizeDescending = "size_descending"
	ReorderShuffle        = "shuffle"
)

func SortPathInfoBySize(pathInfos []PathInfo, ascending bool) {
	if ascending {
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size < pathInfos[j].Size
		})
	} else {
		sort.SliceStable(pathInfos, func(i, j int) bool {
			return pathInfos[i].Size > pathInfos[j].Size
		})
	}
}

func SortPathInfoByPath(pathInfos []PathInfo, ascending bool) {
	if ascending {
		sort.Slice(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path < pathInfos[j].Path
		})
	} else {
		sort.Slice(pathInfos, func(i, j int) bool {
			return pathInfos[i].Path > pathInfos[j].Path
		})
	}
}

func ShufflePathInfos(pathInfos []PathInfo) {
	rand.Shuffle(len(pathInfos), func(i, j int) {
		pathInfos[i], pathInfos[j] = pathInfos[j], pathInfos[i]
	})
}

// ValidReorder reports whether spec is a known reorder specification. The
// empty string means none.
func ValidReorder(spec string) bool {
	switch spec {
	case "", ReorderNone, ReorderPathAscending, ReorderPathDescending,
		ReorderSizeAscending, ReorderSizeDescending, ReorderShuffle:
		return true
	}
	return false
}

// ReorderPathInfos
// Reorders discovered shards in place. Only the scheduling order changes;
// `size_descending` starts the largest shards first so stragglers are
// small ones.
func ReorderPathInfos(pathInfos []PathInfo, spec string) error {
	switch spec {
	case "", ReorderNone:
	case ReorderPathAscending:
		SortPathInfoByPath(pathInfos, true)
	case ReorderPathDescending:
		SortPathInfoByPath(pathInfos, false)
	case ReorderSizeAscending:
		SortPathInfoBySize(pathInfos, true)
	case ReorderSizeDescending:
		SortPathInfoBySize(pathInfos, false)
	case ReorderShuffle:
		ShufflePathInfos(pathInfos)
	default:
		return errors.New(fmt.Sprintf("Invalid reorder spec: %s", spec))
	}
	return nil
}
