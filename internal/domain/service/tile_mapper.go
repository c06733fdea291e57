package service

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"Storyworld-App/internal/domain/helper"
	"Storyworld-App/internal/domain/model"
)

// TileMapper は座標とslippy-mapタイルを相互に変換する
type TileMapper struct {
	zoom int
}

// NewTileMapper は固定ズームのTileMapperを作成
func NewTileMapper(zoom int) (*TileMapper, error) {
	if zoom < 0 || zoom > model.MaxZoom {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidZoom, zoom)
	}
	return &TileMapper{zoom: zoom}, nil
}

// Zoom は設定されたズームレベルを返す
func (m *TileMapper) Zoom() int {
	return m.zoom
}

// TileFor は設定ズームで座標を含むタイルを返す
func (m *TileMapper) TileFor(coord model.LatLng) (model.Tile, error) {
	return TileFor(coord, m.zoom)
}

// TilesInRange は中心タイルから半径radius（タイル数）の正方形近傍を返す
// |dx| <= radius かつ |dy| <= radius のタイルを行優先で並べる
func (m *TileMapper) TilesInRange(center model.LatLng, radius int) ([]model.Tile, error) {
	if radius < 0 {
		return nil, fmt.Errorf("半径は0以上である必要があります: %d", radius)
	}

	centerTile, err := m.TileFor(center)
	if err != nil {
		return nil, err
	}

	n := 1 << m.zoom
	tiles := make([]model.Tile, 0, (2*radius+1)*(2*radius+1))
	seen := make(map[string]struct{}, cap(tiles))

	for dy := -radius; dy <= radius; dy++ {
		y := centerTile.Y + dy
		// 南北の端は折り返さない
		if y < 0 || y >= n {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			// 東西は日付変更線をまたいで折り返す
			x := ((centerTile.X+dx)%n + n) % n
			tile := model.Tile{X: x, Y: y, Zoom: m.zoom}
			if _, ok := seen[tile.Key()]; ok {
				continue
			}
			seen[tile.Key()] = struct{}{}
			tiles = append(tiles, tile)
		}
	}

	return tiles, nil
}

// TileFor はWeb Mercatorのslippy-mapタイルを計算する
// 範囲外の座標はエラー、メルカトル限界を超える緯度は丸める
func TileFor(coord model.LatLng, zoom int) (model.Tile, error) {
	if !coord.IsValid() {
		return model.Tile{}, fmt.Errorf("%w: (%f, %f)", model.ErrInvalidCoordinate, coord.Lat, coord.Lng)
	}
	if zoom < 0 || zoom > model.MaxZoom {
		return model.Tile{}, fmt.Errorf("%w: %d", model.ErrInvalidZoom, zoom)
	}

	point := orb.Point{coord.Lng, helper.ClampLatitude(coord.Lat)}
	t := maptile.At(point, maptile.Zoom(zoom))

	// 経度180度・緯度の下限はタイル数と同じ値になるので最後のタイルに寄せる
	n := uint32(1) << uint32(zoom)
	x, y := t.X, t.Y
	if x >= n {
		x = n - 1
	}
	if y >= n {
		y = n - 1
	}

	return model.Tile{X: int(x), Y: int(y), Zoom: zoom}, nil
}

// TileBounds はタイルの緯度経度の境界ボックスを返す
func TileBounds(tile model.Tile) orb.Bound {
	return maptile.New(uint32(tile.X), uint32(tile.Y), maptile.Zoom(tile.Zoom)).Bound()
}

// TileCenter はタイルの中心座標を返す
func TileCenter(tile model.Tile) model.LatLng {
	return model.LatLngFromPoint(TileBounds(tile).Center())
}
