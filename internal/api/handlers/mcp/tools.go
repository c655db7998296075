// Package mcp 以 MCP tool call 形式提供菜單搜尋、暫存盤與餐點紀錄
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/api/handlers"
	menuHandler "dining-menu/internal/api/handlers/menu"
	plateHandler "dining-menu/internal/api/handlers/plate"
	"dining-menu/internal/core/dining"
	"dining-menu/internal/core/plate"
	"dining-menu/internal/pkg/common"
	"dining-menu/internal/storage"
)

// 工具名稱
const (
	ToolSearchMenu  = "search_menu"
	ToolGetDayMenu  = "get_day_menu"
	ToolGetPlate    = "get_plate"
	ToolLogPlate    = "log_plate"
	ToolGetMealLogs = "get_meal_logs"
)

// SearchMenuParams search_menu 參數
type SearchMenuParams struct {
	Date  string `json:"date,omitempty" description:"Menu date (YYYY-MM-DD), defaults to today"`
	Query string `json:"query" description:"Case-insensitive text to look for"`
}

// DayMenuParams get_day_menu 參數
type DayMenuParams struct {
	Date string `json:"date,omitempty" description:"Menu date (YYYY-MM-DD), defaults to today"`
}

// PlateParams get_plate 參數
type PlateParams struct {
	Session string `json:"session" description:"Plate session id"`
}

// LogPlateParams log_plate 參數
type LogPlateParams struct {
	Session   string   `json:"session" description:"Plate session id"`
	AthleteID string   `json:"athlete_id" description:"Athlete receiving the meal log"`
	ItemIDs   []string `json:"item_ids,omitempty" description:"Plate items to log, all items when empty"`
	DateTime  string   `json:"date_time,omitempty" description:"RFC3339 time of the meal, defaults to now"`
}

// MealLogsParams get_meal_logs 參數
type MealLogsParams struct {
	AthleteID string `json:"athlete_id" description:"Athlete id"`
	StartDate string `json:"start_date,omitempty" description:"Start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" description:"End date (YYYY-MM-DD), inclusive"`
	Limit     int    `json:"limit,omitempty" description:"Maximum number of logs to return"`
}

// Handler MCP 工具處理程序
type Handler struct {
	menus  *dining.Service
	plates *plate.Registry
	store  storage.Store
	plate  *plateHandler.Handler
	now    func() time.Time
}

// NewHandler 創建 MCP 工具處理程序
func NewHandler(menus *dining.Service, plates *plate.Registry, store storage.Store, ph *plateHandler.Handler) *Handler {
	return &Handler{menus: menus, plates: plates, store: store, plate: ph, now: time.Now}
}

// HandleToolCall POST /mcp
func (h *Handler) HandleToolCall(c *gin.Context) {
	var request protocol.CallToolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		handlers.RespondError(c, common.NewValidationError("invalid tool call"))
		return
	}

	common.LogInfo("MCP tool call",
		zap.String("request_id", requestid.Get(c)),
		zap.String("tool", request.Name),
	)

	result, err := h.Call(c.Request.Context(), &request)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Call 依工具名稱分派
func (h *Handler) Call(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	switch req.Name {
	case ToolSearchMenu:
		return h.searchMenu(ctx, req)
	case ToolGetDayMenu:
		return h.dayMenu(ctx, req)
	case ToolGetPlate:
		return h.getPlate(req)
	case ToolLogPlate:
		return h.logPlate(ctx, req)
	case ToolGetMealLogs:
		return h.mealLogs(ctx, req)
	default:
		return nil, common.ErrNotFound.Wrap(fmt.Errorf("unknown tool: %s", req.Name))
	}
}

func (h *Handler) searchMenu(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SearchMenuParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	date, err := common.ParseDate(params.Date, h.now())
	if err != nil {
		return nil, err
	}

	results, err := h.menus.Search(ctx, date, params.Query)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(menuHandler.NewSearchResponse(date, params.Query, results))
}

func (h *Handler) dayMenu(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DayMenuParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	date, err := common.ParseDate(params.Date, h.now())
	if err != nil {
		return nil, err
	}

	day, err := h.menus.DayMenu(ctx, date)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(menuHandler.NewDayMenuResponse(day))
}

func (h *Handler) getPlate(req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params PlateParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Session == "" {
		return nil, common.NewValidationError("session is required")
	}

	var resp plateHandler.PlateResponse
	_ = h.plates.Do(params.Session, func(p *plate.Plate) error {
		items := p.Items()
		resp = plateHandler.PlateResponse{Session: params.Session, Items: items, Summary: plate.Summarize(items)}
		return nil
	})
	return createJSONResponse(resp)
}

func (h *Handler) logPlate(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogPlateParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.Session == "" || params.AthleteID == "" {
		return nil, common.NewValidationError("session and athlete_id are required")
	}

	at := h.now()
	if params.DateTime != "" {
		t, err := time.Parse(time.RFC3339, params.DateTime)
		if err != nil {
			return nil, common.NewValidationError(fmt.Sprintf("invalid date_time %q", params.DateTime))
		}
		at = t
	}

	resp, err := h.plate.Checkout(ctx, params.Session, params.AthleteID, params.ItemIDs, at)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(resp)
}

func (h *Handler) mealLogs(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params MealLogsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if params.AthleteID == "" {
		return nil, common.NewValidationError("athlete_id is required")
	}

	now := h.now()
	q := storage.Query{Limit: params.Limit}
	if params.StartDate != "" {
		from, err := common.ParseDate(params.StartDate, now)
		if err != nil {
			return nil, err
		}
		q.From = from
	}
	if params.EndDate != "" {
		to, err := common.ParseDate(params.EndDate, now)
		if err != nil {
			return nil, err
		}
		q.To = to.AddDate(0, 0, 1)
	}

	logs, err := h.store.ListMealLogs(ctx, params.AthleteID, q)
	if err != nil {
		return nil, common.ErrStoreFailure.Wrap(err)
	}
	return createJSONResponse(plateHandler.MealLogsResponse{AthleteID: params.AthleteID, Count: len(logs), MealLogs: logs})
}

// extractParams 將 Arguments 轉為參數結構，未知欄位視為錯誤
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	data, err := json.Marshal(req.Arguments)
	if err != nil {
		return common.NewValidationError(fmt.Sprintf("invalid arguments: %v", err))
	}
	if err := common.ParseJSONBytesStrict(data, target); err != nil {
		return common.NewValidationError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	text, err := common.ToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: text,
			},
		},
	}, nil
}
