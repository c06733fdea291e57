package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"Storyworld-App/internal/domain/helper"
	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/repository"
)

// DropRecorder はドロップ結果の計測を受け取る
type DropRecorder interface {
	ObserveDrop(outcome *model.DropOutcome)
	ObserveRewardDraw(elapsed time.Duration, err error)
}

// DropOrchestratorConfig はドロップ判定の設定値
type DropOrchestratorConfig struct {
	NearThresholdMeters float64
	RewardTimeout       time.Duration
}

// DropOrchestrator はサークルの距離・クールダウンを判定して報酬を付与する
// Idle → Evaluating → {ImmediateReward | CooldownBlocked} → Resolved
type DropOrchestrator struct {
	tileStore   repository.TileCacheStore
	collections repository.CollectionRepository
	rewards     repository.RewardProvider
	recorder    DropRecorder
	logger      logrus.FieldLogger
	config      DropOrchestratorConfig
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand

	locks *userLocks
}

// NewDropOrchestrator は新しいDropOrchestratorインスタンスを作成
func NewDropOrchestrator(
	tileStore repository.TileCacheStore,
	collections repository.CollectionRepository,
	rewards repository.RewardProvider,
	recorder DropRecorder,
	logger logrus.FieldLogger,
	config DropOrchestratorConfig,
) *DropOrchestrator {
	if config.NearThresholdMeters <= 0 {
		config.NearThresholdMeters = model.DefaultNearThresholdM
	}
	if config.RewardTimeout <= 0 {
		config.RewardTimeout = 10 * time.Second
	}
	return &DropOrchestrator{
		tileStore:   tileStore,
		collections: collections,
		rewards:     rewards,
		recorder:    recorder,
		logger:      logger,
		config:      config,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		locks:       newUserLocks(),
	}
}

// WithClock は現在時刻の取得関数を差し替える
// リクエストを受け付ける前（構築直後）にのみ呼ぶこと
func (o *DropOrchestrator) WithClock(now func() time.Time) *DropOrchestrator {
	o.now = now
	return o
}

// WithRand は報酬量の抽選に使う乱数を差し替える
// リクエストを受け付ける前（構築直後）にのみ呼ぶこと
func (o *DropOrchestrator) WithRand(rng *rand.Rand) *DropOrchestrator {
	o.rng = rng
	return o
}

// evaluation は判定済みのサークルと状態
type evaluation struct {
	userID    string
	circle    model.Circle // 判定時点のサークル（ロールバック用）
	remaining time.Duration
	reserved  bool // ActivateIfReadyで使用済みにした
	outcome   *model.DropOutcome
}

// Evaluate はサークルのタップを判定し、近くてクールダウンが終わっていれば報酬を付与する
func (o *DropOrchestrator) Evaluate(ctx context.Context, req model.DropRequest) (*model.DropOutcome, error) {
	if !o.locks.tryAcquire(req.UserID) {
		return nil, model.ErrDropInProgress
	}
	defer o.locks.release(req.UserID)

	now := o.now()
	ev, err := o.evaluate(ctx, req, now, true)
	if err != nil {
		return nil, err
	}

	if ev.outcome.Outcome == model.DropStateImmediateReward {
		o.grantReward(ctx, req.UserID, ev, now, 0)
	}

	o.resolve(ev.outcome)
	return ev.outcome, nil
}

// Purchase はCooldownBlockedのサークルに対して、価格分のコインを支払って報酬を獲得する
// クールダウン中のサークルはタイマーをリセットしない
func (o *DropOrchestrator) Purchase(ctx context.Context, req model.DropRequest) (*model.DropOutcome, error) {
	if !o.locks.tryAcquire(req.UserID) {
		return nil, model.ErrDropInProgress
	}
	defer o.locks.release(req.UserID)

	now := o.now()
	ev, err := o.evaluate(ctx, req, now, false)
	if err != nil {
		return nil, err
	}
	if ev.outcome.Outcome != model.DropStateCooldownBlocked {
		return nil, model.ErrNotPurchasable
	}

	collection, err := o.loadCollection(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if collection.Coins < ev.circle.BasePrice {
		return nil, fmt.Errorf("%w: 必要 %d, 所持 %d", model.ErrInsufficientCoins, ev.circle.BasePrice, collection.Coins)
	}

	// 遠くて使えなかったサークルは購入でクールダウンを開始する
	if ev.remaining == 0 {
		if err := o.reserve(ctx, ev, now); err != nil && !errors.Is(err, model.ErrCircleCoolingDown) {
			return nil, err
		}
	}

	o.grantReward(ctx, req.UserID, ev, now, ev.circle.BasePrice)
	o.resolve(ev.outcome)
	return ev.outcome, nil
}

// evaluate はIdle → Evaluating → {ImmediateReward | CooldownBlocked} まで進める
// reserveがtrueなら、ImmediateRewardに進む前にストア側でサークルを使用済みにする
func (o *DropOrchestrator) evaluate(ctx context.Context, req model.DropRequest, now time.Time, reserve bool) (*evaluation, error) {
	if req.UserLocation == nil || !req.UserLocation.ToLatLng().IsValid() {
		return nil, fmt.Errorf("%w: 現在地が不正です", model.ErrInvalidCoordinate)
	}

	outcome := &model.DropOutcome{
		State:    model.DropStateIdle,
		Trace:    []model.DropState{model.DropStateIdle},
		CircleID: req.CircleID,
		TileKey:  req.TileKey,
	}
	o.transition(outcome, model.DropStateEvaluating)

	record, err := o.tileStore.Get(ctx, req.UserID, req.TileKey)
	if err != nil {
		return nil, fmt.Errorf("タイルの取得に失敗: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrTileNotFound, req.TileKey)
	}
	circle, ok := record.FindCircle(req.CircleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrCircleNotFound, req.CircleID)
	}

	distance := helper.DistanceMeters(req.UserLocation.ToLatLng(), circle.Location)
	remaining := RemainingCooldown(circle, now)

	ev := &evaluation{userID: req.UserID, circle: circle, remaining: remaining, outcome: outcome}
	if remaining == 0 && distance <= o.config.NearThresholdMeters && reserve {
		err := o.reserve(ctx, ev, now)
		switch {
		case errors.Is(err, model.ErrCircleCoolingDown):
			// 判定の間に使用済みになった
			remaining = ev.remaining
		case err != nil:
			return nil, err
		}
	}

	outcome.DistanceMeters = distance
	outcome.RemainingCooldownSeconds = CircleStatusAt(ev.circle, now).RemainingCooldownSeconds

	switch {
	case remaining > 0:
		// 距離に関係なくクールダウン中
		outcome.BlockReason = model.BlockReasonCooldown
		outcome.PurchasePrice = circle.BasePrice
		o.transition(outcome, model.DropStateCooldownBlocked)
	case distance > o.config.NearThresholdMeters:
		outcome.BlockReason = model.BlockReasonTooFar
		outcome.PurchasePrice = circle.BasePrice
		o.transition(outcome, model.DropStateCooldownBlocked)
	default:
		o.transition(outcome, model.DropStateImmediateReward)
	}
	outcome.Outcome = outcome.State

	o.logger.WithFields(logrus.Fields{
		"tile":     req.TileKey,
		"circle":   req.CircleID,
		"distance": fmt.Sprintf("%.1fm", distance),
		"state":    outcome.State,
	}).Debug("🎯 ドロップ判定")

	return ev, nil
}

// reserve はクールダウンを再確認しながらサークルを使用済みにする
// クールダウン中だった場合は ev を最新の状態に更新して ErrCircleCoolingDown を返す
func (o *DropOrchestrator) reserve(ctx context.Context, ev *evaluation, now time.Time) error {
	current, err := o.tileStore.ActivateIfReady(ctx, ev.userID, ev.circle.TileKey, ev.circle.ID, now)
	if err != nil {
		if errors.Is(err, model.ErrCircleCoolingDown) {
			ev.circle = current
			ev.remaining = RemainingCooldown(current, now)
			return err
		}
		return fmt.Errorf("サークルの使用に失敗: %w", err)
	}
	ev.reserved = true
	return nil
}

// rollback は報酬を付与できなかったときに使用済みを取り消す
func (o *DropOrchestrator) rollback(ctx context.Context, ev *evaluation) {
	if !ev.reserved {
		return
	}
	if err := o.tileStore.UpdateCircle(ctx, ev.userID, ev.circle.TileKey, ev.circle); err != nil {
		o.logger.WithError(err).WithField("circle", ev.circle.ID).Error("❌ サークルの使用済み取り消しに失敗")
		return
	}
	ev.reserved = false
}

// grantReward は報酬動画を抽選してコレクションに追加する
// 失敗は outcome.FailureReason に記録し、使用済みにしたサークルは元に戻す（リトライはしない）
func (o *DropOrchestrator) grantReward(ctx context.Context, userID string, ev *evaluation, now time.Time, price int) {
	outcome := ev.outcome
	circle := ev.circle

	collection, err := o.loadCollection(ctx, userID)
	if err != nil {
		o.logger.WithError(err).Warn("⚠️ コレクションの読み込みに失敗")
		outcome.FailureReason = model.FailurePersist
		o.rollback(ctx, ev)
		return
	}

	video, err := o.drawVideo(ctx, circle, collection)
	if err != nil {
		outcome.FailureReason = failureReasonFor(err)
		o.logger.WithError(err).WithField("circle", circle.ID).Warn("⚠️ 報酬動画の抽選に失敗")
		o.rollback(ctx, ev)
		return
	}

	tier, err := model.GetRarityTier(circle.Rarity)
	if err != nil {
		outcome.FailureReason = model.FailurePersist
		o.rollback(ctx, ev)
		return
	}
	experience, coins := o.rollRewardAmounts(tier)

	collection.AddVideo(video.ID)
	collection.Experience += experience
	collection.Coins += coins - price
	collection.UpdatedAt = now
	if err := o.collections.Save(ctx, collection); err != nil {
		o.logger.WithError(err).Error("❌ コレクションの保存に失敗")
		outcome.FailureReason = model.FailurePersist
		o.rollback(ctx, ev)
		return
	}

	outcome.Reward = &model.RewardGrant{
		Video:      video,
		Experience: experience,
		Coins:      coins,
		CoinsSpent: price,
	}
	o.logger.WithFields(logrus.Fields{
		"user":   userID,
		"video":  video.ID,
		"rarity": circle.Rarity,
	}).Info("🎁 報酬動画を獲得")
}

// drawVideo はタイムアウト付きで未所持の動画を1本抽選する
func (o *DropOrchestrator) drawVideo(ctx context.Context, circle model.Circle, collection *model.UserCollection) (*model.Video, error) {
	drawCtx, cancel := context.WithTimeout(ctx, o.config.RewardTimeout)
	defer cancel()

	type drawResult struct {
		video *model.Video
		err   error
	}
	done := make(chan drawResult, 1)
	req := model.RewardRequest{
		Genre:      circle.Genre,
		Rarity:     circle.Rarity,
		ExcludeIDs: append([]string(nil), collection.VideoIDs...),
	}

	start := time.Now()
	go func() {
		video, err := o.rewards.DrawVideo(drawCtx, req)
		done <- drawResult{video: video, err: err}
	}()

	var (
		video *model.Video
		err   error
	)
	select {
	case res := <-done:
		video, err = res.video, res.err
	case <-drawCtx.Done():
		err = drawCtx.Err()
	}
	if err == nil && (video == nil || collection.Owns(video.ID)) {
		err = model.ErrNoVideosAvailable
	}
	if o.recorder != nil {
		o.recorder.ObserveRewardDraw(time.Since(start), err)
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (o *DropOrchestrator) loadCollection(ctx context.Context, userID string) (*model.UserCollection, error) {
	collection, err := o.collections.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗: %w", err)
	}
	if collection == nil {
		collection = &model.UserCollection{UserID: userID, VideoIDs: []string{}}
	}
	return collection, nil
}

func (o *DropOrchestrator) rollRewardAmounts(tier model.RarityTier) (int, int) {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return randomInRange(o.rng, tier.Experience), randomInRange(o.rng, tier.Coins)
}

func (o *DropOrchestrator) transition(outcome *model.DropOutcome, next model.DropState) {
	outcome.State = next
	outcome.Trace = append(outcome.Trace, next)
}

// resolve は終端状態に遷移して計測する
func (o *DropOrchestrator) resolve(outcome *model.DropOutcome) {
	o.transition(outcome, model.DropStateResolved)
	if o.recorder != nil {
		o.recorder.ObserveDrop(outcome)
	}
}

// failureReasonFor は報酬抽選のエラーを失敗理由に変換する
func failureReasonFor(err error) string {
	switch {
	case errors.Is(err, model.ErrNoVideosAvailable):
		return model.FailureNoVideos
	case errors.Is(err, context.DeadlineExceeded):
		return model.FailureRewardTimeout
	default:
		return model.FailureRewardFetch
	}
}

// userLocks はユーザーごとに同時に1つのドロップだけを許可する
type userLocks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{held: make(map[string]struct{})}
}

func (l *userLocks) tryAcquire(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[userID]; ok {
		return false
	}
	l.held[userID] = struct{}{}
	return true
}

func (l *userLocks) release(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, userID)
}
