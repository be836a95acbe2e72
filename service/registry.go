package service

import (
	"fmt"
	"sync"

	"PatternStudio-server/models"
)

// SessionRegistry 正在运行的会话的内存快照。
// 历史记录在循环结束后才落库，运行期间的逐项进度全部从这里读。
// 同一产品类型同时只允许一个会话在跑，用 scope -> sessionID 做简单互斥。
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]models.GenerationSession
	running  map[string]string // productTypeID -> sessionID
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]models.GenerationSession),
		running:  make(map[string]string),
	}
}

// Begin 登记一个新会话并占住它的产品类型。
// 该产品类型已有会话在跑时拒绝，调用方据此返回 409。
func (r *SessionRegistry) Begin(s models.GenerationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid, ok := r.running[s.ProductTypeID]; ok {
		return fmt.Errorf("a generation run is already in progress for this product type (session %s)", sid)
	}
	r.running[s.ProductTypeID] = s.ID
	r.sessions[s.ID] = s
	return nil
}

// Update 用最新快照覆盖（每次逐项状态转移后调用）。
func (r *SessionRegistry) Update(s models.GenerationSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		r.sessions[s.ID] = s
	}
}

// Get 返回运行中会话的快照。
func (r *SessionRegistry) Get(sessionID string) (models.GenerationSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// End 释放产品类型并移除快照（此后进度从历史记录读取）。
func (r *SessionRegistry) End(s models.GenerationSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid, ok := r.running[s.ProductTypeID]; ok && sid == s.ID {
		delete(r.running, s.ProductTypeID)
	}
	delete(r.sessions, s.ID)
}
