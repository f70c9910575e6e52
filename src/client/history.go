package client

import "sync"

// HistoryCapacity 保留的历史记录条数
const HistoryCapacity = 5

// 历史记录类型
const (
	EntryText  = "text"
	EntryImage = "image"
)

// HistoryEntry 一次成功检查的记录，图片记录的 Prompt 为文件名
type HistoryEntry struct {
	Prompt      string `json:"prompt"`
	RiskLevel   int    `json:"riskLevel"`
	Explanation string `json:"explanation"`
	Type        string `json:"type"`
}

// History 最近的检查记录，最新的在前
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

// Add 插入到最前面，超出容量时丢弃最旧的记录
func (h *History) Add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := make([]HistoryEntry, 0, HistoryCapacity)
	entries = append(entries, e)
	for _, old := range h.entries {
		if len(entries) == HistoryCapacity {
			break
		}
		entries = append(entries, old)
	}
	h.entries = entries
}

// Entries 返回记录副本
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HistoryEntry(nil), h.entries...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
