package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"Storyworld-App/internal/domain/model"
)

// FunctionClient はリモートの報酬抽選関数（POST {baseURL}/rewards/draw）を呼び出す
type FunctionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewFunctionClient は新しいクライアントを生成する
func NewFunctionClient(baseURL string) *FunctionClient {
	return &FunctionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type drawRequest struct {
	Data model.RewardRequest `json:"data"`
}

type drawResponse struct {
	Result *model.Video `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DrawVideo は抽選関数を呼び出して動画を1本取得する
func (c *FunctionClient) DrawVideo(ctx context.Context, req model.RewardRequest) (*model.Video, error) {
	body, err := json.Marshal(drawRequest{Data: req})
	if err != nil {
		return nil, fmt.Errorf("リクエストのエンコードに失敗: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rewards/draw", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("抽選関数の呼び出しに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, model.ErrNoVideosAvailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("抽選関数からエラーステータスが返されました: %s", resp.Status)
	}

	var out drawResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("JSONのパースに失敗: %w", err)
	}
	if out.Error != nil {
		if out.Error.Status == "NOT_FOUND" {
			return nil, model.ErrNoVideosAvailable
		}
		return nil, fmt.Errorf("抽選関数エラー: %s %s", out.Error.Status, out.Error.Message)
	}
	if out.Result == nil || out.Result.ID == "" {
		return nil, model.ErrNoVideosAvailable
	}
	return out.Result, nil
}
