package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"Storyworld-App/internal/domain/model"
)

// memTileStore はテスト用のメモリ上のTileCacheStore
// サークルは共有、表示フラグと使用履歴はユーザー単位
type memTileStore struct {
	mu          sync.Mutex
	tiles       map[string]*model.TileRecord
	visible     map[string]map[string]bool
	activations map[string]map[string]time.Time
}

func newMemTileStore(records ...model.TileRecord) *memTileStore {
	s := &memTileStore{
		tiles:       map[string]*model.TileRecord{},
		visible:     map[string]map[string]bool{},
		activations: map[string]map[string]time.Time{},
	}
	for i := range records {
		rec := records[i].Clone()
		for j := range rec.Circles {
			rec.Circles[j].LastActivatedAt = nil
		}
		s.tiles[rec.TileKey] = rec
	}
	return s
}

// activate はユーザーの使用履歴を直接設定する
func (s *memTileStore) activate(userID, circleID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activations[userID] == nil {
		s.activations[userID] = map[string]time.Time{}
	}
	s.activations[userID][circleID] = at
}

// show はユーザーの表示フラグを直接立てる
func (s *memTileStore) show(userID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setVisibleLocked(userID, key, true)
}

func (s *memTileStore) viewLocked(userID, key string) *model.TileRecord {
	tile, ok := s.tiles[key]
	if !ok {
		return nil
	}
	rec := tile.Clone()
	rec.UserID = userID
	rec.Visible = s.visible[userID][key]
	for i := range rec.Circles {
		if at, ok := s.activations[userID][rec.Circles[i].ID]; ok {
			at := at
			rec.Circles[i].LastActivatedAt = &at
		}
	}
	return rec
}

func (s *memTileStore) setVisibleLocked(userID, key string, visible bool) {
	if s.visible[userID] == nil {
		s.visible[userID] = map[string]bool{}
	}
	s.visible[userID][key] = visible
}

func (s *memTileStore) Get(ctx context.Context, userID, key string) (*model.TileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(userID, key), nil
}

func (s *memTileStore) Put(ctx context.Context, userID, key string, circles []model.Circle, visible bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[key]; ok {
		if s.visible[userID][key] || !visible {
			return false, nil
		}
		s.setVisibleLocked(userID, key, true)
		return true, nil
	}
	s.tiles[key] = &model.TileRecord{TileKey: key, Circles: circles}
	s.setVisibleLocked(userID, key, visible)
	return true, nil
}

func (s *memTileStore) PutMany(ctx context.Context, userID string, records []model.TileRecord) (int, error) {
	n := 0
	for _, r := range records {
		ok, _ := s.Put(ctx, userID, r.TileKey, r.Circles, r.Visible)
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *memTileStore) SetVisible(ctx context.Context, userID, key string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[key]; !ok {
		return model.ErrTileNotFound
	}
	s.setVisibleLocked(userID, key, visible)
	return nil
}

func (s *memTileStore) ResetVisibility(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, v := range s.visible[userID] {
		if v {
			s.visible[userID][key] = false
			n++
		}
	}
	return n, nil
}

func (s *memTileStore) UpdateCircle(ctx context.Context, userID, key string, circle model.Circle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.viewLocked(userID, key)
	if rec == nil {
		return model.ErrTileNotFound
	}
	if _, ok := rec.FindCircle(circle.ID); !ok {
		return model.ErrCircleNotFound
	}
	if circle.LastActivatedAt == nil {
		delete(s.activations[userID], circle.ID)
		return nil
	}
	if s.activations[userID] == nil {
		s.activations[userID] = map[string]time.Time{}
	}
	s.activations[userID][circle.ID] = *circle.LastActivatedAt
	return nil
}

func (s *memTileStore) ActivateIfReady(ctx context.Context, userID, key, circleID string, now time.Time) (model.Circle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.viewLocked(userID, key)
	if rec == nil {
		return model.Circle{}, model.ErrTileNotFound
	}
	c, ok := rec.FindCircle(circleID)
	if !ok {
		return model.Circle{}, model.ErrCircleNotFound
	}
	if c.RemainingCooldownAt(now) > 0 {
		return c, model.ErrCircleCoolingDown
	}
	if s.activations[userID] == nil {
		s.activations[userID] = map[string]time.Time{}
	}
	s.activations[userID][circleID] = now
	c.LastActivatedAt = &now
	return c, nil
}

func (s *memTileStore) VisibleRecords(ctx context.Context, userID string) ([]model.TileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TileRecord
	for uid, keys := range s.visible {
		if userID != "" && uid != userID {
			continue
		}
		for key, v := range keys {
			if v {
				out = append(out, *s.viewLocked(uid, key))
			}
		}
	}
	return out, nil
}

func (s *memTileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles = map[string]*model.TileRecord{}
	s.visible = map[string]map[string]bool{}
	s.activations = map[string]map[string]time.Time{}
	return nil
}

// memCollections はテスト用のCollectionRepository
type memCollections struct {
	mu       sync.Mutex
	items    map[string]model.UserCollection
	failSave bool
}

func newMemCollections() *memCollections {
	return &memCollections{items: map[string]model.UserCollection{}}
}

func (m *memCollections) Get(ctx context.Context, userID string) (*model.UserCollection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[userID]
	if !ok {
		return nil, nil
	}
	c.VideoIDs = append([]string(nil), c.VideoIDs...)
	return &c, nil
}

func (m *memCollections) Save(ctx context.Context, c *model.UserCollection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	cp := *c
	cp.VideoIDs = append([]string(nil), c.VideoIDs...)
	m.items[c.UserID] = cp
	return nil
}

// rewardFunc は関数をRewardProviderとして扱う
type rewardFunc func(ctx context.Context, req model.RewardRequest) (*model.Video, error)

func (f rewardFunc) DrawVideo(ctx context.Context, req model.RewardRequest) (*model.Video, error) {
	return f(ctx, req)
}

// memCatalog はテスト用のVideoCatalogRepository
type memCatalog struct {
	videos []model.Video
	err    error
}

func (c *memCatalog) FindByGenreAndRarity(ctx context.Context, genre string, rarity model.Rarity, excludeIDs []string) ([]model.Video, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []model.Video
	for _, v := range c.videos {
		if v.Genre == genre && v.Rarity == rarity {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *memCatalog) FindByChannel(ctx context.Context, channelID string, excludeIDs []string) ([]model.Video, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []model.Video
	for _, v := range c.videos {
		if v.ChannelID == channelID {
			out = append(out, v)
		}
	}
	return out, nil
}
