package plate

import (
	"strings"
	"sync"
)

// Registry 以 session 區分的暫存盤，供 HTTP 層共用
type Registry struct {
	mu     sync.Mutex
	plates map[string]*Plate
}

// NewRegistry 建立空的 Registry
func NewRegistry() *Registry {
	return &Registry{plates: make(map[string]*Plate)}
}

// Do 在鎖內對指定 session 的盤執行 fn，不存在時自動建立
func (r *Registry) Do(session string, fn func(p *Plate) error) error {
	session = strings.TrimSpace(session)
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.plates[session]
	if !ok {
		p = New()
		r.plates[session] = p
	}
	err := fn(p)
	if p.Len() == 0 {
		delete(r.plates, session)
	}
	return err
}

// Drop 移除 session 的盤
func (r *Registry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plates, strings.TrimSpace(session))
}

// Sessions 目前有項目的 session 數
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plates)
}
