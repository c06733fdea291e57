package usecase

import (
	"context"
	"fmt"

	"Storyworld-App/internal/domain/model"
	"Storyworld-App/internal/domain/service"
)

type DropUseCase interface {
	// Drop はサークルのタップを判定して報酬を付与する
	Drop(ctx context.Context, req *model.DropRequest) (*model.DropOutcome, error)

	// Purchase はクールダウン中・距離外のサークルをコインで購入する
	Purchase(ctx context.Context, req *model.DropRequest) (*model.DropOutcome, error)
}

// dropUseCaseImpl はDropUseCaseの実装
type dropUseCaseImpl struct {
	orchestrator *service.DropOrchestrator
}

// NewDropUseCase は新しいDropUseCaseインスタンスを作成
func NewDropUseCase(orchestrator *service.DropOrchestrator) DropUseCase {
	return &dropUseCaseImpl{orchestrator: orchestrator}
}

func (u *dropUseCaseImpl) Drop(ctx context.Context, req *model.DropRequest) (*model.DropOutcome, error) {
	if err := checkTileKey(req); err != nil {
		return nil, err
	}
	return u.orchestrator.Evaluate(ctx, *req)
}

func (u *dropUseCaseImpl) Purchase(ctx context.Context, req *model.DropRequest) (*model.DropOutcome, error) {
	if err := checkTileKey(req); err != nil {
		return nil, err
	}
	return u.orchestrator.Purchase(ctx, *req)
}

func checkTileKey(req *model.DropRequest) error {
	if req == nil {
		return fmt.Errorf("リクエストが空です")
	}
	if _, err := model.ParseTileKey(req.TileKey); err != nil {
		return err
	}
	return nil
}
