package service

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"Storyworld-App/internal/domain/helper"
	"Storyworld-App/internal/domain/model"
)

// CircleGenerator はタイルごとにドロップサークルを確率的に配置する
type CircleGenerator struct {
	mu               sync.Mutex // rand.Randはgoroutine安全ではない
	rng              *rand.Rand
	spawnProbability float64
	genres           []string
	table            []model.RarityTier
	newID            func() string
}

// NewCircleGenerator は新しいCircleGeneratorインスタンスを作成
func NewCircleGenerator(rng *rand.Rand, spawnProbability float64) *CircleGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &CircleGenerator{
		rng:              rng,
		spawnProbability: spawnProbability,
		genres:           model.GetAllGenres(),
		table:            model.RarityTable,
		newID:            func() string { return uuid.New().String() },
	}
}

// Generate は各タイルのサークルを生成する（タイルキー → サークル一覧）
// 出現しなかったタイルは空のスライスになる
func (g *CircleGenerator) Generate(tiles []model.Tile) map[string][]model.Circle {
	result := make(map[string][]model.Circle, len(tiles))
	for _, tile := range tiles {
		result[tile.Key()] = g.GenerateForTile(tile)
	}
	return result
}

// GenerateForTile は1タイル分の出現抽選を行う（1タイル最大1サークル）
func (g *CircleGenerator) GenerateForTile(tile model.Tile) []model.Circle {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.rng.Float64() >= g.spawnProbability {
		return []model.Circle{}
	}

	genre := g.genres[g.rng.Intn(len(g.genres))]
	tier := g.pickTierLocked()
	location := helper.RandomPointInBound(TileBounds(tile), g.rng.Float64(), g.rng.Float64())

	circle := model.Circle{
		ID:              g.newID(),
		Genre:           genre,
		Rarity:          tier.Rarity,
		Location:        location,
		BasePrice:       randomInRange(g.rng, tier.Price),
		CooldownSeconds: tier.CooldownsSeconds[g.rng.Intn(len(tier.CooldownsSeconds))],
		TileKey:         tile.Key(),
	}
	return []model.Circle{circle}
}

// PickRarity は重み付き抽選でレアリティを1つ選ぶ
func (g *CircleGenerator) PickRarity() model.Rarity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pickTierLocked().Rarity
}

func (g *CircleGenerator) pickTierLocked() model.RarityTier {
	total := 0.0
	for _, tier := range g.table {
		total += tier.Weight
	}
	return SelectRarityTier(g.table, g.rng.Float64()*total)
}

// SelectRarityTier は [0, 合計重み) の値から累積重みでティアを選ぶ
// 浮動小数点の誤差で末尾を超えた場合は最も低いティアを返す
func SelectRarityTier(table []model.RarityTier, draw float64) model.RarityTier {
	cumulative := 0.0
	for _, tier := range table {
		cumulative += tier.Weight
		if draw < cumulative {
			return tier
		}
	}
	return table[0]
}

// randomInRange は両端を含む範囲の一様乱数
func randomInRange(rng *rand.Rand, r model.IntRange) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rng.Intn(r.Max-r.Min+1)
}
