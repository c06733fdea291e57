package helper

import "Storyworld-App/internal/domain/model"

// FilterExcludedVideos は除外IDに含まれる動画を取り除く
func FilterExcludedVideos(videos []model.Video, excludeIDs []string) []model.Video {
	if len(excludeIDs) == 0 {
		return videos
	}
	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var filtered []model.Video
	for _, v := range videos {
		if _, ok := excluded[v.ID]; ok {
			continue
		}
		filtered = append(filtered, v)
	}
	return filtered
}

// MergeVideoIDs は2つのID一覧の和集合を順序を保って返す
func MergeVideoIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	return merged
}
