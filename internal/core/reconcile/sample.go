package reconcile

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"dining-menu/internal/core/menu"
)

//go:embed sample_menu.yaml
var sampleMenuYAML []byte

// Samples 各餐段的靜態範例菜單
type Samples map[menu.Slot][]menu.RawLocation

// LoadSamples 解析 YAML 範例菜單，頂層鍵為餐段名稱
func LoadSamples(data []byte) (Samples, error) {
	var raw map[string][]menu.RawLocation
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析範例菜單失敗: %w", err)
	}

	samples := make(Samples, len(raw))
	for key, locations := range raw {
		slot, ok := menu.ParseSlot(key)
		if !ok {
			return nil, fmt.Errorf("範例菜單含未知餐段 %q", key)
		}
		samples[slot] = locations
	}
	return samples, nil
}

// DefaultSamples 內嵌的範例菜單
func DefaultSamples() Samples {
	samples, err := LoadSamples(sampleMenuYAML)
	if err != nil {
		panic(err)
	}
	return samples
}
