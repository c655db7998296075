package menu

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToNumber 解析數值；字串會先去除數字、小數點與負號以外的字元。
// 無法解析時回傳 false，不以 0 代替。
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case *float64:
		if n == nil {
			return 0, false
		}
		f = *n
	case json.Number:
		return parseNumeric(string(n))
	case string:
		return parseNumeric(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumeric(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Round2 四捨五入到小數第二位
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatNumber 以最短形式輸出兩位小數內的數字
func FormatNumber(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', -1, 64)
}

// Float 取得指標
func Float(v float64) *float64 {
	return &v
}
