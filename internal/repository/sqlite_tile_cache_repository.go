package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
	"Storyworld-App/internal/infrastructure/sqlite"
)

// sqlExecer は *sql.DB と *sql.Tx の共通部分
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// sharedTile 全ユーザー共通のタイル（サークルの一覧）
// 一度作られたら作り直さないので、ristrettoにそのままキャッシュできる
type sharedTile struct {
	TileKey   string         `json:"tile_key"`
	Circles   []model.Circle `json:"circles"`
	CreatedAt time.Time      `json:"created_at"`
}

// putPlan はPutで書き込む内容（tileがnilなら既存タイル）
type putPlan struct {
	tileKey string
	tile    *sharedTile
	show    bool
}

// SQLiteTileCacheRepository SQLiteに永続化し、共有タイルをristrettoでキャッシュするタイルストア
// 表示フラグ(tile_visibility)と使用履歴(circle_activations)はユーザー単位
// タイルキー単位の読み書きはkeyedMutexで直列化し、全体操作はglobalの書き込みロックで排他する
type SQLiteTileCacheRepository struct {
	client *sqlite.SQLiteClient
	cache  *ristretto.Cache[string, *sharedTile]
	locks  *keyedMutex
	global sync.RWMutex
	logger logrus.FieldLogger
	now    func() time.Time
}

var _ repository.TileCacheStore = (*SQLiteTileCacheRepository)(nil)

// NewSQLiteTileCacheRepository 新しいSQLiteTileCacheRepositoryインスタンスを作成
func NewSQLiteTileCacheRepository(client *sqlite.SQLiteClient, logger logrus.FieldLogger) (*SQLiteTileCacheRepository, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *sharedTile]{
		NumCounters: 100000,
		MaxCost:     10000, // 1タイル=コスト1
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("タイルキャッシュの初期化に失敗: %w", err)
	}

	return &SQLiteTileCacheRepository{
		client: client,
		cache:  cache,
		locks:  newKeyedMutex(),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close はキャッシュを解放する（DB接続はクライアント側で閉じる）
func (r *SQLiteTileCacheRepository) Close() {
	r.cache.Close()
}

// Get はユーザーから見たタイルレコードを取得する
func (r *SQLiteTileCacheRepository) Get(ctx context.Context, userID, tileKey string) (*model.TileRecord, error) {
	if err := checkUserAndKey(userID, tileKey); err != nil {
		return nil, err
	}

	r.global.RLock()
	defer r.global.RUnlock()
	unlock := r.locks.Lock(tileKey)
	defer unlock()

	tile, err := r.loadShared(ctx, tileKey)
	if err != nil || tile == nil {
		return nil, err
	}
	return r.view(ctx, userID, tile)
}

// Put はタイルレコードを保存する
// ユーザーに表示中なら何もしない、既存のタイルはサークルを維持して表示フラグのみ更新
func (r *SQLiteTileCacheRepository) Put(ctx context.Context, userID, tileKey string, circles []model.Circle, visible bool) (bool, error) {
	n, err := r.PutMany(ctx, userID, []model.TileRecord{{TileKey: tileKey, Circles: circles, Visible: visible}})
	return n > 0, err
}

// PutMany は複数タイルにPutと同じルールを適用し、1トランザクションで書き込む
func (r *SQLiteTileCacheRepository) PutMany(ctx context.Context, userID string, records []model.TileRecord) (int, error) {
	if userID == "" {
		return 0, model.ErrUserIDRequired
	}
	keys := make([]string, 0, len(records))
	for _, rec := range records {
		if _, err := model.ParseTileKey(rec.TileKey); err != nil {
			return 0, err
		}
		if err := checkCircleKeys(rec.TileKey, rec.Circles); err != nil {
			return 0, err
		}
		keys = append(keys, rec.TileKey)
	}
	if len(records) == 0 {
		return 0, nil
	}

	r.global.RLock()
	defer r.global.RUnlock()
	unlock := r.locks.LockAll(keys)
	defer unlock()

	// 接続は1本なので、読み込みはトランザクション開始前に済ませる
	var plans []*putPlan
	seen := make(map[string]struct{})
	for _, rec := range records {
		// 同じキーがバッチ内に複数ある場合は先勝ち
		if _, ok := seen[rec.TileKey]; ok {
			continue
		}
		seen[rec.TileKey] = struct{}{}

		plan, err := r.plan(ctx, userID, rec)
		if err != nil {
			return 0, err
		}
		if plan != nil {
			plans = append(plans, plan)
		}
	}
	if len(plans) == 0 {
		return 0, nil
	}

	tx, err := r.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	for _, plan := range plans {
		if err := r.apply(ctx, tx, userID, plan); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("タイルレコードの一括保存に失敗: %w", err)
	}

	for _, plan := range plans {
		if plan.tile != nil {
			r.cacheSet(plan.tile)
		}
	}
	return len(plans), nil
}

// SetVisible はユーザーの表示フラグを更新する
func (r *SQLiteTileCacheRepository) SetVisible(ctx context.Context, userID, tileKey string, visible bool) error {
	if err := checkUserAndKey(userID, tileKey); err != nil {
		return err
	}

	r.global.RLock()
	defer r.global.RUnlock()
	unlock := r.locks.Lock(tileKey)
	defer unlock()

	tile, err := r.loadShared(ctx, tileKey)
	if err != nil {
		return err
	}
	if tile == nil {
		return fmt.Errorf("%w: %s", model.ErrTileNotFound, tileKey)
	}
	return r.writeVisibility(ctx, r.client.DB, userID, tileKey, visible)
}

// ResetVisibility はユーザーの表示フラグを全て下ろす（サークルと使用履歴は保持）
func (r *SQLiteTileCacheRepository) ResetVisibility(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, model.ErrUserIDRequired
	}

	r.global.RLock()
	defer r.global.RUnlock()

	res, err := r.client.DB.ExecContext(ctx, `DELETE FROM tile_visibility WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("表示フラグのリセットに失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("表示フラグのリセット件数の取得に失敗: %w", err)
	}

	r.logger.Infof("🔄 表示フラグをリセット: %s %d件", userID, n)
	return int(n), nil
}

// UpdateCircle はユーザーの使用履歴をcircle.LastActivatedAtに合わせる
func (r *SQLiteTileCacheRepository) UpdateCircle(ctx context.Context, userID, tileKey string, circle model.Circle) error {
	if err := checkUserAndKey(userID, tileKey); err != nil {
		return err
	}
	if circle.TileKey != tileKey {
		return fmt.Errorf("%w: %s != %s", model.ErrTileKeyMismatch, circle.TileKey, tileKey)
	}

	r.global.RLock()
	defer r.global.RUnlock()
	unlock := r.locks.Lock(tileKey)
	defer unlock()

	tile, err := r.loadShared(ctx, tileKey)
	if err != nil {
		return err
	}
	if tile == nil {
		return fmt.Errorf("%w: %s", model.ErrTileNotFound, tileKey)
	}
	if !hasCircle(tile, circle.ID) {
		return fmt.Errorf("%w: %s", model.ErrCircleNotFound, circle.ID)
	}
	return r.writeActivation(ctx, userID, tileKey, circle.ID, circle.LastActivatedAt)
}

// ActivateIfReady はキーのロックを持ったままクールダウンを確認し、使用可能なら使用済みにする
func (r *SQLiteTileCacheRepository) ActivateIfReady(ctx context.Context, userID, tileKey, circleID string, now time.Time) (model.Circle, error) {
	if err := checkUserAndKey(userID, tileKey); err != nil {
		return model.Circle{}, err
	}

	r.global.RLock()
	defer r.global.RUnlock()
	unlock := r.locks.Lock(tileKey)
	defer unlock()

	tile, err := r.loadShared(ctx, tileKey)
	if err != nil {
		return model.Circle{}, err
	}
	if tile == nil {
		return model.Circle{}, fmt.Errorf("%w: %s", model.ErrTileNotFound, tileKey)
	}
	record, err := r.view(ctx, userID, tile)
	if err != nil {
		return model.Circle{}, err
	}
	circle, ok := record.FindCircle(circleID)
	if !ok {
		return model.Circle{}, fmt.Errorf("%w: %s", model.ErrCircleNotFound, circleID)
	}
	if remaining := circle.RemainingCooldownAt(now); remaining > 0 {
		return circle, fmt.Errorf("%w: 残り%v", model.ErrCircleCoolingDown, remaining.Round(time.Second))
	}

	activatedAt := now.UTC()
	if err := r.writeActivation(ctx, userID, tileKey, circleID, &activatedAt); err != nil {
		return model.Circle{}, err
	}
	circle.LastActivatedAt = &activatedAt
	return circle, nil
}

// VisibleRecords は表示中のレコード一覧を返す、userIDが空なら全ユーザー分
func (r *SQLiteTileCacheRepository) VisibleRecords(ctx context.Context, userID string) ([]model.TileRecord, error) {
	r.global.RLock()
	defer r.global.RUnlock()

	query := `
		SELECT v.user_id, t.tile_key, t.payload
		FROM tile_visibility v JOIN tile_records t ON t.tile_key = v.tile_key`
	activationQuery := `
		SELECT a.user_id, a.circle_id, a.activated_at
		FROM circle_activations a JOIN tile_visibility v
			ON v.user_id = a.user_id AND v.tile_key = a.tile_key`
	var args []any
	if userID != "" {
		query += ` WHERE v.user_id = ?`
		activationQuery += ` WHERE a.user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY v.user_id, t.tile_key`

	records, err := r.queryVisible(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return records, nil
	}

	activations, err := r.queryActivations(ctx, activationQuery, args...)
	if err != nil {
		return nil, err
	}
	for i := range records {
		applyActivations(&records[i], activations[records[i].UserID])
	}
	return records, nil
}

// Clear は全レコードを削除する
func (r *SQLiteTileCacheRepository) Clear(ctx context.Context) error {
	r.global.Lock()
	defer r.global.Unlock()

	for _, table := range []string{"circle_activations", "tile_visibility", "tile_records"} {
		if _, err := r.client.DB.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("タイルキャッシュの削除に失敗 (%s): %w", table, err)
		}
	}
	r.cache.Clear()
	return nil
}

// plan は既存タイルと突き合わせて書き込むべき内容を返す、何もしない場合はnil
// 呼び出し側でキーのロックを取得していること
func (r *SQLiteTileCacheRepository) plan(ctx context.Context, userID string, incoming model.TileRecord) (*putPlan, error) {
	existing, err := r.loadShared(ctx, incoming.TileKey)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		// 一度作られたタイルのサークルは作り直さない
		if !incoming.Visible {
			return nil, nil
		}
		visible, err := r.isVisible(ctx, userID, incoming.TileKey)
		if err != nil || visible {
			return nil, err
		}
		return &putPlan{tileKey: incoming.TileKey, show: true}, nil
	}

	circles := make([]model.Circle, len(incoming.Circles))
	for i, c := range incoming.Circles {
		// 使用履歴はユーザー単位で持つので共有タイルには含めない
		c.LastActivatedAt = nil
		circles[i] = c
	}
	return &putPlan{
		tileKey: incoming.TileKey,
		tile:    &sharedTile{TileKey: incoming.TileKey, Circles: circles, CreatedAt: r.now().UTC()},
		show:    incoming.Visible,
	}, nil
}

func (r *SQLiteTileCacheRepository) apply(ctx context.Context, exec sqlExecer, userID string, plan *putPlan) error {
	if plan.tile != nil {
		if err := r.writeShared(ctx, exec, plan.tile); err != nil {
			return err
		}
	}
	if plan.show {
		return r.writeVisibility(ctx, exec, userID, plan.tileKey, true)
	}
	return nil
}

// view は共有タイルにユーザーの表示フラグと使用履歴を重ねる
func (r *SQLiteTileCacheRepository) view(ctx context.Context, userID string, tile *sharedTile) (*model.TileRecord, error) {
	visible, err := r.isVisible(ctx, userID, tile.TileKey)
	if err != nil {
		return nil, err
	}
	activations, err := r.queryActivations(ctx, `
		SELECT user_id, circle_id, activated_at FROM circle_activations
		WHERE user_id = ? AND tile_key = ?`, userID, tile.TileKey)
	if err != nil {
		return nil, err
	}

	record := tile.toRecord(userID, visible)
	applyActivations(record, activations[userID])
	return record, nil
}

// loadShared はキャッシュ→SQLiteの順に共有タイルを探す
// 壊れたペイロードは削除して存在しないものとして扱う
func (r *SQLiteTileCacheRepository) loadShared(ctx context.Context, tileKey string) (*sharedTile, error) {
	if cached, ok := r.cache.Get(tileKey); ok && cached != nil {
		return cached, nil
	}

	var payload string
	err := r.client.DB.QueryRowContext(ctx, `SELECT payload FROM tile_records WHERE tile_key = ?`, tileKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タイルレコードの取得に失敗: %w", err)
	}

	tile, err := decodeSharedTile(tileKey, payload)
	if err != nil {
		r.logger.WithError(err).Warnf("⚠️ 壊れたタイルレコードを破棄: %s", tileKey)
		if err := r.deleteTile(ctx, tileKey); err != nil {
			return nil, err
		}
		return nil, nil
	}

	r.cacheSet(tile)
	return tile, nil
}

func (r *SQLiteTileCacheRepository) deleteTile(ctx context.Context, tileKey string) error {
	for _, table := range []string{"circle_activations", "tile_visibility", "tile_records"} {
		if _, err := r.client.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE tile_key = ?`, tileKey); err != nil {
			return fmt.Errorf("壊れたタイルレコードの削除に失敗: %w", err)
		}
	}
	return nil
}

func (r *SQLiteTileCacheRepository) isVisible(ctx context.Context, userID, tileKey string) (bool, error) {
	var one int
	err := r.client.DB.QueryRowContext(ctx,
		`SELECT 1 FROM tile_visibility WHERE user_id = ? AND tile_key = ?`, userID, tileKey).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("表示フラグの取得に失敗: %w", err)
	}
	return true, nil
}

// queryVisible は (user_id, tile_key, payload) の行を読み込む
// 行を読み切ってから返すこと（接続は1本）
func (r *SQLiteTileCacheRepository) queryVisible(ctx context.Context, query string, args ...any) ([]model.TileRecord, error) {
	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("タイルレコードの検索に失敗: %w", err)
	}
	defer rows.Close()

	records := []model.TileRecord{}
	for rows.Next() {
		var userID, tileKey, payload string
		if err := rows.Scan(&userID, &tileKey, &payload); err != nil {
			return nil, fmt.Errorf("タイルレコードのスキャンエラー: %w", err)
		}
		tile, err := decodeSharedTile(tileKey, payload)
		if err != nil {
			r.logger.WithError(err).Warnf("⚠️ 壊れたタイルレコードをスキップ: %s", tileKey)
			continue
		}
		records = append(records, *tile.toRecord(userID, true))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タイルレコードの読み込みに失敗: %w", err)
	}
	return records, nil
}

// queryActivations は (user_id, circle_id, activated_at) の行を user → circle → 時刻 にまとめる
func (r *SQLiteTileCacheRepository) queryActivations(ctx context.Context, query string, args ...any) (map[string]map[string]time.Time, error) {
	rows, err := r.client.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("使用履歴の検索に失敗: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]time.Time)
	for rows.Next() {
		var userID, circleID, raw string
		if err := rows.Scan(&userID, &circleID, &raw); err != nil {
			return nil, fmt.Errorf("使用履歴のスキャンエラー: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			r.logger.WithError(err).Warnf("⚠️ 壊れた使用履歴をスキップ: %s/%s", userID, circleID)
			continue
		}
		if out[userID] == nil {
			out[userID] = make(map[string]time.Time)
		}
		out[userID][circleID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("使用履歴の読み込みに失敗: %w", err)
	}
	return out, nil
}

func (r *SQLiteTileCacheRepository) writeShared(ctx context.Context, exec sqlExecer, tile *sharedTile) error {
	payload, err := json.Marshal(tile)
	if err != nil {
		return fmt.Errorf("タイルレコードのJSONマーシャル失敗: %w", err)
	}

	_, err = exec.ExecContext(ctx, `
		INSERT INTO tile_records (tile_key, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tile_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		tile.TileKey, string(payload), r.timestamp())
	if err != nil {
		return fmt.Errorf("タイルレコードの保存に失敗 (%s): %w", tile.TileKey, err)
	}
	return nil
}

func (r *SQLiteTileCacheRepository) writeVisibility(ctx context.Context, exec sqlExecer, userID, tileKey string, visible bool) error {
	var err error
	if visible {
		_, err = exec.ExecContext(ctx, `
			INSERT INTO tile_visibility (user_id, tile_key, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(user_id, tile_key) DO UPDATE SET updated_at = excluded.updated_at`,
			userID, tileKey, r.timestamp())
	} else {
		_, err = exec.ExecContext(ctx, `DELETE FROM tile_visibility WHERE user_id = ? AND tile_key = ?`, userID, tileKey)
	}
	if err != nil {
		return fmt.Errorf("表示フラグの更新に失敗 (%s): %w", tileKey, err)
	}
	return nil
}

func (r *SQLiteTileCacheRepository) writeActivation(ctx context.Context, userID, tileKey, circleID string, at *time.Time) error {
	var err error
	if at == nil {
		_, err = r.client.DB.ExecContext(ctx,
			`DELETE FROM circle_activations WHERE user_id = ? AND circle_id = ?`, userID, circleID)
	} else {
		_, err = r.client.DB.ExecContext(ctx, `
			INSERT INTO circle_activations (user_id, tile_key, circle_id, activated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(user_id, circle_id) DO UPDATE SET activated_at = excluded.activated_at`,
			userID, tileKey, circleID, at.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return fmt.Errorf("使用履歴の保存に失敗 (%s): %w", circleID, err)
	}
	return nil
}

func (r *SQLiteTileCacheRepository) timestamp() string {
	return r.now().UTC().Format(time.RFC3339Nano)
}

func (r *SQLiteTileCacheRepository) cacheSet(tile *sharedTile) {
	r.cache.Set(tile.TileKey, tile, 1)
	r.cache.Wait()
}

// toRecord はユーザー向けのレコードを作る（サークルはコピー）
func (t *sharedTile) toRecord(userID string, visible bool) *model.TileRecord {
	circles := make([]model.Circle, len(t.Circles))
	copy(circles, t.Circles)
	return &model.TileRecord{
		TileKey:   t.TileKey,
		UserID:    userID,
		Circles:   circles,
		Visible:   visible,
		CreatedAt: t.CreatedAt,
	}
}

func applyActivations(record *model.TileRecord, activations map[string]time.Time) {
	for i := range record.Circles {
		if at, ok := activations[record.Circles[i].ID]; ok {
			at := at
			record.Circles[i].LastActivatedAt = &at
		}
	}
}

func hasCircle(tile *sharedTile, circleID string) bool {
	for _, c := range tile.Circles {
		if c.ID == circleID {
			return true
		}
	}
	return false
}

func decodeSharedTile(tileKey, payload string) (*sharedTile, error) {
	var tile sharedTile
	if err := json.Unmarshal([]byte(payload), &tile); err != nil {
		return nil, fmt.Errorf("タイルレコードのJSONアンマーシャル失敗: %w", err)
	}
	if tile.TileKey != tileKey {
		return nil, fmt.Errorf("%w: %s != %s", model.ErrTileKeyMismatch, tile.TileKey, tileKey)
	}
	if err := checkCircleKeys(tileKey, tile.Circles); err != nil {
		return nil, err
	}
	if tile.Circles == nil {
		tile.Circles = []model.Circle{}
	}
	return &tile, nil
}

func checkUserAndKey(userID, tileKey string) error {
	if userID == "" {
		return model.ErrUserIDRequired
	}
	_, err := model.ParseTileKey(tileKey)
	return err
}

// checkCircleKeys はサークルのタイルキーがレコードのキーと一致するか確認する
func checkCircleKeys(tileKey string, circles []model.Circle) error {
	for _, c := range circles {
		if c.TileKey != tileKey {
			return fmt.Errorf("%w: circle %s は %s に属しています", model.ErrTileKeyMismatch, c.ID, c.TileKey)
		}
	}
	return nil
}
