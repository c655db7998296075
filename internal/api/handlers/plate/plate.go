// Package plate 暫存盤、結帳與餐點紀錄查詢的 HTTP 處理器
package plate

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/api/handlers"
	"dining-menu/internal/core/menu"
	plateModel "dining-menu/internal/core/plate"
	"dining-menu/internal/metrics"
	"dining-menu/internal/pkg/common"
	"dining-menu/internal/storage"
)

// AddItemRequest 加入菜色；Portion 省略時為 1
type AddItemRequest struct {
	Item     menu.MenuItem `json:"item"`
	MealType string        `json:"meal_type"`
	Location string        `json:"location"`
	Portion  *float64      `json:"portion"`
}

// UpdatePortionRequest 調整份量
type UpdatePortionRequest struct {
	Portion float64 `json:"portion" binding:"required"`
}

// CheckoutRequest 結帳；ItemIDs 為空時結帳整盤
type CheckoutRequest struct {
	AthleteID string     `json:"athlete_id" binding:"required"`
	ItemIDs   []string   `json:"item_ids"`
	DateTime  *time.Time `json:"date_time"`
}

// PlateResponse 暫存盤內容與彙總
type PlateResponse struct {
	Session string                 `json:"session"`
	Items   []plateModel.PlateItem `json:"items"`
	Summary plateModel.Summary     `json:"summary"`
}

// CheckoutResponse 結帳結果與剩餘項目
type CheckoutResponse struct {
	MealLog *storage.MealLog `json:"meal_log"`
	Plate   PlateResponse    `json:"plate"`
}

// MealLogsResponse 餐點紀錄清單
type MealLogsResponse struct {
	AthleteID string             `json:"athlete_id"`
	Count     int                `json:"count"`
	MealLogs  []*storage.MealLog `json:"meal_logs"`
}

// Handler 暫存盤處理程序
type Handler struct {
	plates  *plateModel.Registry
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewHandler 創建暫存盤處理程序
func NewHandler(plates *plateModel.Registry, store storage.Store, m *metrics.Metrics) *Handler {
	return &Handler{plates: plates, store: store, metrics: m, now: time.Now}
}

// HandleGetPlate GET /plates/:session
func (h *Handler) HandleGetPlate(c *gin.Context) {
	session := c.Param("session")
	var resp PlateResponse
	_ = h.plates.Do(session, func(p *plateModel.Plate) error {
		resp = snapshot(session, p)
		return nil
	})
	c.JSON(http.StatusOK, resp)
}

// HandleAddItem POST /plates/:session/items
func (h *Handler) HandleAddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, common.NewValidationError("invalid request format"))
		return
	}
	if menu.CleanText(req.Item.Name) == "" {
		handlers.RespondError(c, common.NewValidationError("item name is required"))
		return
	}
	portion := 1.0
	if req.Portion != nil {
		portion = *req.Portion
	}

	session := c.Param("session")
	var added plateModel.PlateItem
	var resp PlateResponse
	err := h.plates.Do(session, func(p *plateModel.Plate) error {
		var err error
		if added, err = p.Add(req.Item, req.MealType, req.Location, portion); err != nil {
			return err
		}
		resp = snapshot(session, p)
		return nil
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("菜色已加入暫存盤",
		zap.String("request_id", requestid.Get(c)),
		zap.String("session", session),
		zap.String("item", added.Item.Name),
		zap.Float64("portion", added.Portion),
	)
	c.JSON(http.StatusCreated, resp)
}

// HandleUpdatePortion PATCH /plates/:session/items/:id
func (h *Handler) HandleUpdatePortion(c *gin.Context) {
	var req UpdatePortionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, common.NewValidationError("portion is required"))
		return
	}

	session := c.Param("session")
	var resp PlateResponse
	err := h.plates.Do(session, func(p *plateModel.Plate) error {
		if _, err := p.UpdatePortion(c.Param("id"), req.Portion); err != nil {
			return err
		}
		resp = snapshot(session, p)
		return nil
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRemoveItem DELETE /plates/:session/items/:id
func (h *Handler) HandleRemoveItem(c *gin.Context) {
	session := c.Param("session")
	var resp PlateResponse
	err := h.plates.Do(session, func(p *plateModel.Plate) error {
		if !p.Remove(c.Param("id")) {
			return plateModel.ErrItemNotFound
		}
		resp = snapshot(session, p)
		return nil
	})
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleClear DELETE /plates/:session
func (h *Handler) HandleClear(c *gin.Context) {
	session := c.Param("session")
	h.plates.Drop(session)
	c.JSON(http.StatusOK, snapshot(session, plateModel.New()))
}

// HandleCheckout POST /plates/:session/checkout
func (h *Handler) HandleCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondError(c, common.NewValidationError("athlete_id is required"))
		return
	}
	at := h.now()
	if req.DateTime != nil {
		at = *req.DateTime
	}

	session := c.Param("session")
	resp, err := h.Checkout(c.Request.Context(), session, req.AthleteID, req.ItemIDs, at)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("暫存盤已結帳",
		zap.String("request_id", requestid.Get(c)),
		zap.String("session", session),
		zap.String("meal_log_id", resp.MealLog.ID),
		zap.Int("calories", resp.MealLog.Calories),
		zap.Int("remaining", len(resp.Plate.Items)),
	)
	c.JSON(http.StatusCreated, resp)
}

// Checkout 結帳並寫入紀錄；寫入失敗時暫存盤保持不變
func (h *Handler) Checkout(ctx context.Context, session, athleteID string, ids []string, at time.Time) (*CheckoutResponse, error) {
	var resp CheckoutResponse
	err := h.plates.Do(session, func(p *plateModel.Plate) error {
		if len(ids) == 0 {
			for _, it := range p.Items() {
				ids = append(ids, it.ID)
			}
		}
		draft, _, err := plateModel.Checkout(p.Items(), ids, at)
		if err != nil {
			return err
		}

		saved, err := h.store.SaveMealLog(ctx, athleteID, draft)
		if err != nil {
			return common.ErrStoreFailure.Wrap(err)
		}
		if _, err := p.Checkout(ids, at); err != nil {
			return err
		}

		resp.MealLog = saved
		resp.Plate = snapshot(session, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveCheckout()
	return &resp, nil
}

// HandleListMealLogs GET /athletes/:athlete/meals?from=&to=&limit=
func (h *Handler) HandleListMealLogs(c *gin.Context) {
	athleteID := c.Param("athlete")
	now := h.now()

	var q storage.Query
	if v := c.Query("from"); v != "" {
		from, err := common.ParseDate(v, now)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		q.From = from
	}
	if v := c.Query("to"); v != "" {
		to, err := common.ParseDate(v, now)
		if err != nil {
			handlers.RespondError(c, err)
			return
		}
		// to 為包含當天
		q.To = to.AddDate(0, 0, 1)
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			handlers.RespondError(c, common.NewValidationError("limit must be a positive integer"))
			return
		}
		q.Limit = limit
	}

	logs, err := h.store.ListMealLogs(c.Request.Context(), athleteID, q)
	if err != nil {
		handlers.RespondError(c, common.ErrStoreFailure.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, MealLogsResponse{AthleteID: athleteID, Count: len(logs), MealLogs: logs})
}

// HandleGetMealLog GET /meal-logs/:id
func (h *Handler) HandleGetMealLog(c *gin.Context) {
	log, err := h.store.GetMealLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

func snapshot(session string, p *plateModel.Plate) PlateResponse {
	items := p.Items()
	return PlateResponse{
		Session: session,
		Items:   items,
		Summary: plateModel.Summarize(items),
	}
}
