// Package provider 餐廳菜單供應商 HTTP 客戶端
package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"dining-menu/internal/core/menu"
	"dining-menu/internal/infrastructure/config"
	"dining-menu/internal/pkg/common"
)

// 回應格式
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// slotPath 單一餐段端點
const slotPath = "/menus/{slot}"

// NotConfiguredMessage 未設定供應商時回報的錯誤
const NotConfiguredMessage = "menu provider not configured"

// Client 供應商客戶端，實作 reconcile.Fetcher
type Client struct {
	client *resty.Client
	cfg    config.ProviderConfig
}

// NewClient 創建供應商客戶端
func NewClient(cfg config.ProviderConfig) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Accept", "application/json, text/html;q=0.9").
		SetHeader("User-Agent", "dining-menu/1.0")

	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	common.LogInfo("菜單供應商客戶端已初始化",
		zap.String("base_url", cfg.BaseURL),
		zap.String("api_key", config.MaskAPIKey(cfg.APIKey)),
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("retry_count", cfg.RetryCount),
	)

	return &Client{client: client, cfg: cfg}
}

// FetchSlot 取得指定日期與餐段的菜單。
// 傳輸失敗或無法辨識的錯誤回應回傳 error；供應商自行回報的錯誤放在 ProviderResponse.Error。
func (c *Client) FetchSlot(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("slot", string(slot)).
		SetQueryParam("date", date.Format(common.DateLayout)).
		Get(slotPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.Wrap(fmt.Errorf("%s menu request timed out", slot))
		}
		return nil, common.ErrProviderUnavailable.Wrap(fmt.Errorf("request %s menu: %w", slot, err))
	}

	out, decodeErr := Decode(resp.Header().Get("Content-Type"), resp.Body())

	if resp.IsError() {
		// 供應商以 JSON 回報錯誤時，交給整合器決定是否改用備援
		if decodeErr == nil && out.Error != "" {
			common.LogWarn("供應商回報錯誤",
				zap.String("slot", string(slot)),
				zap.Int("status", resp.StatusCode()),
				zap.String("error", out.Error),
			)
			return out, nil
		}
		return nil, common.ErrProviderUnavailable.Wrap(
			fmt.Errorf("%s menu request failed with status %d", slot, resp.StatusCode()))
	}
	if decodeErr != nil {
		return nil, common.ErrProviderUnavailable.Wrap(fmt.Errorf("decode %s menu: %w", slot, decodeErr))
	}

	common.LogDebug("供應商回應",
		zap.String("slot", string(slot)),
		zap.String("format", out.Format),
		zap.Int("locations", len(out.Menu)),
		zap.Int("html_bytes", len(out.HTML)),
	)
	return out, nil
}

// Decode 依內容類型解析回應：JSON 回應解為 ProviderResponse，HTML 或非 JSON 內容放入 HTML 欄位
func Decode(contentType string, body []byte) (*menu.ProviderResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if strings.Contains(strings.ToLower(contentType), "html") ||
		(len(trimmed) > 0 && trimmed[0] == '<') {
		return &menu.ProviderResponse{HTML: string(body), Format: FormatHTML}, nil
	}
	if len(trimmed) == 0 {
		return &menu.ProviderResponse{Format: FormatJSON}, nil
	}

	var out menu.ProviderResponse
	if err := common.ParseJSONBytes(trimmed, &out); err != nil {
		return nil, err
	}
	if out.Format == "" {
		if out.HTML != "" && len(out.Menu) == 0 {
			out.Format = FormatHTML
		} else {
			out.Format = FormatJSON
		}
	}
	return &out, nil
}

// Offline 未設定供應商時使用，每個餐段都回報錯誤以便改用範例菜單
type Offline struct{}

// FetchSlot 實作 reconcile.Fetcher
func (Offline) FetchSlot(ctx context.Context, date time.Time, slot menu.Slot) (*menu.ProviderResponse, error) {
	return &menu.ProviderResponse{Error: NotConfiguredMessage}, nil
}
