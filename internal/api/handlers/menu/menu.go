// Package menu 當日菜單、搜尋與刷新的 HTTP 處理器
package menu

import (
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dining-menu/internal/api/handlers"
	"dining-menu/internal/core/dining"
	menuModel "dining-menu/internal/core/menu"
	"dining-menu/internal/core/queue"
	"dining-menu/internal/core/search"
	"dining-menu/internal/pkg/common"
)

// DayMenuResponse 當日菜單響應
type DayMenuResponse struct {
	Date      string                 `json:"date"`
	Source    menuModel.Source       `json:"source"`
	Error     *string                `json:"error"`
	Cached    bool                   `json:"cached"`
	FetchedAt time.Time              `json:"fetched_at"`
	Sections  []handlers.SectionView `json:"sections"`
}

// SearchResult 搜尋結果輸出
type SearchResult struct {
	Location     string            `json:"location"`
	MealType     string            `json:"meal_type"`
	MealLabel    string            `json:"meal_label"`
	SectionType  string            `json:"section_type"`
	SectionLabel string            `json:"section_label"`
	Item         handlers.ItemView `json:"item"`
}

// SearchResponse 搜尋響應
type SearchResponse struct {
	Date    string         `json:"date"`
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Results []SearchResult `json:"results"`
}

// RefreshRequest 刷新請求；Wait 為 true 時等待刷新完成
type RefreshRequest struct {
	Date string `json:"date"`
	Wait bool   `json:"wait"`
}

// RefreshResponse 刷新響應
type RefreshResponse struct {
	RequestID string  `json:"request_id"`
	Date      string  `json:"date"`
	Status    string  `json:"status"` // queued | done | failed
	Error     *string `json:"error,omitempty"`
}

// Handler 菜單處理程序
type Handler struct {
	service *dining.Service
	queue   *queue.Manager
	now     func() time.Time
}

// NewHandler 創建菜單處理程序
func NewHandler(service *dining.Service, queue *queue.Manager) *Handler {
	return &Handler{service: service, queue: queue, now: time.Now}
}

// HandleDayMenu GET /menus?date=YYYY-MM-DD
func (h *Handler) HandleDayMenu(c *gin.Context) {
	date, err := common.ParseDate(c.Query("date"), h.now())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	day, err := h.service.DayMenu(c.Request.Context(), date)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("當日菜單請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("date", day.Date),
		zap.String("source", day.Source.String()),
		zap.Bool("cached", day.Cached),
	)

	c.JSON(http.StatusOK, NewDayMenuResponse(day))
}

// HandleSearch GET /menus/search?date=YYYY-MM-DD&q=...
func (h *Handler) HandleSearch(c *gin.Context) {
	date, err := common.ParseDate(c.Query("date"), h.now())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	query := c.Query("q")

	results, err := h.service.Search(c.Request.Context(), date, query)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSearchResponse(date, query, results))
}

// HandleRefresh POST /menus/refresh
func (h *Handler) HandleRefresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handlers.RespondError(c, common.NewValidationError("invalid request format"))
			return
		}
	}
	date, err := common.ParseDate(req.Date, h.now())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	job, err := h.queue.Enqueue(c.Request.Context(), date)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	resp := RefreshResponse{RequestID: job.ID, Date: date.Format(common.DateLayout), Status: "queued"}
	if !req.Wait {
		c.JSON(http.StatusAccepted, resp)
		return
	}

	select {
	case res := <-job.Result:
		resp.Status = "done"
		if res.Error != nil {
			msg := res.Error.Error()
			resp.Status = "failed"
			resp.Error = &msg
		}
		c.JSON(http.StatusOK, resp)
	case <-c.Request.Context().Done():
		handlers.RespondError(c, common.ErrRequestTimeout.Wrap(c.Request.Context().Err()))
	}
}

// NewDayMenuResponse 轉換當日菜單
func NewDayMenuResponse(day *dining.DayMenu) DayMenuResponse {
	return DayMenuResponse{
		Date:      day.Date,
		Source:    day.Source,
		Error:     day.Error,
		Cached:    day.Cached,
		FetchedAt: day.FetchedAt,
		Sections:  handlers.NewSectionViews(day.Sections),
	}
}

// NewSearchResponse 轉換搜尋結果
func NewSearchResponse(date time.Time, query string, results []search.Result) SearchResponse {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Location:     r.Location,
			MealType:     r.MealType,
			MealLabel:    r.MealLabel,
			SectionType:  string(r.SectionType),
			SectionLabel: r.SectionLabel,
			Item:         handlers.NewItemView(r.Item),
		})
	}
	return SearchResponse{
		Date:    date.Format(common.DateLayout),
		Query:   query,
		Count:   len(out),
		Results: out,
	}
}
