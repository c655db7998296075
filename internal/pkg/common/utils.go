package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout 查詢參數使用的日期格式
const DateLayout = "2006-01-02"

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// ParseDate 解析 YYYY-MM-DD，空字串回傳 now 當天
func ParseDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	t, err := time.ParseInLocation(DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return t, nil
}
