package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Tile slippy-mapのタイル（x, y, zoom）
type Tile struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Zoom int `json:"zoom"`
}

// Key はキャッシュのキー "x/y/zoom" を返す
func (t Tile) Key() string {
	return fmt.Sprintf("%d/%d/%d", t.X, t.Y, t.Zoom)
}

func (t Tile) String() string {
	return t.Key()
}

// ParseTileKey は "x/y/zoom" 形式の文字列をTileに変換する
func ParseTileKey(key string) (Tile, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTileKey, key)
	}

	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTileKey, key)
		}
		values[i] = v
	}

	tile := Tile{X: values[0], Y: values[1], Zoom: values[2]}
	if tile.Zoom > MaxZoom {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTileKey, key)
	}
	n := 1 << tile.Zoom
	if tile.X >= n || tile.Y >= n {
		return Tile{}, fmt.Errorf("%w: %q", ErrInvalidTileKey, key)
	}
	return tile, nil
}
