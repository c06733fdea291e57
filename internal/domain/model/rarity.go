package model

import (
	"fmt"
	"math"
)

// Rarity はレアリティの種類（順序付き）
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IntRange は両端を含む整数の範囲
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains は値が範囲内か判定する
func (r IntRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// RarityTier はレアリティごとの静的な設定
type RarityTier struct {
	Rarity           Rarity   `json:"rarity"`
	Weight           float64  `json:"weight"`            // 出現確率（全ティア合計1.0）
	Price            IntRange `json:"price"`             // 基本価格の範囲
	CooldownsSeconds []int    `json:"cooldowns_seconds"` // クールダウン候補
	Experience       IntRange `json:"experience"`        // 経験値報酬の範囲
	Coins            IntRange `json:"coins"`             // コイン報酬の範囲
}

// RarityTable は低い順に並んだレアリティ設定
// 先頭がフォールスルー時のデフォルト
var RarityTable = []RarityTier{
	{
		Rarity:           RarityCommon,
		Weight:           0.60,
		Price:            IntRange{Min: 50, Max: 100},
		CooldownsSeconds: []int{300, 600},
		Experience:       IntRange{Min: 10, Max: 20},
		Coins:            IntRange{Min: 5, Max: 15},
	},
	{
		Rarity:           RarityRare,
		Weight:           0.25,
		Price:            IntRange{Min: 150, Max: 250},
		CooldownsSeconds: []int{600, 900},
		Experience:       IntRange{Min: 30, Max: 50},
		Coins:            IntRange{Min: 20, Max: 40},
	},
	{
		Rarity:           RarityEpic,
		Weight:           0.12,
		Price:            IntRange{Min: 400, Max: 600},
		CooldownsSeconds: []int{1200, 1800},
		Experience:       IntRange{Min: 80, Max: 120},
		Coins:            IntRange{Min: 50, Max: 90},
	},
	{
		Rarity:           RarityLegendary,
		Weight:           0.03,
		Price:            IntRange{Min: 1000, Max: 1500},
		CooldownsSeconds: []int{3600},
		Experience:       IntRange{Min: 200, Max: 300},
		Coins:            IntRange{Min: 150, Max: 250},
	},
}

// GetRarityTier はレアリティから設定を取得する
func GetRarityTier(r Rarity) (RarityTier, error) {
	for _, tier := range RarityTable {
		if tier.Rarity == r {
			return tier, nil
		}
	}
	return RarityTier{}, fmt.Errorf("%w: %s", ErrUnknownRarity, r)
}

// IsValidRarity はレアリティが既知のものか判定する
func IsValidRarity(r Rarity) bool {
	_, err := GetRarityTier(r)
	return err == nil
}

// Rank はレアリティの順位（common=0）を返す、不明なら-1
func (r Rarity) Rank() int {
	for i, tier := range RarityTable {
		if tier.Rarity == r {
			return i
		}
	}
	return -1
}

// ValidateRarityTable は重みの合計と各範囲の整合性を検証する
func ValidateRarityTable(table []RarityTier) error {
	if len(table) == 0 {
		return fmt.Errorf("レアリティテーブルが空です")
	}

	total := 0.0
	for _, tier := range table {
		if tier.Weight < 0 {
			return fmt.Errorf("%s: 重みが負の値です", tier.Rarity)
		}
		if tier.Price.Min > tier.Price.Max || tier.Experience.Min > tier.Experience.Max || tier.Coins.Min > tier.Coins.Max {
			return fmt.Errorf("%s: 範囲の最小値が最大値を超えています", tier.Rarity)
		}
		if len(tier.CooldownsSeconds) == 0 {
			return fmt.Errorf("%s: クールダウン候補がありません", tier.Rarity)
		}
		for _, cd := range tier.CooldownsSeconds {
			if cd <= 0 {
				return fmt.Errorf("%s: クールダウンは正の値である必要があります", tier.Rarity)
			}
		}
		total += tier.Weight
	}

	if math.Abs(total-1.0) > 1e-9 {
		return fmt.Errorf("レアリティの重みの合計が1.0ではありません: %f", total)
	}
	return nil
}
