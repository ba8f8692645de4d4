package model

// 状态事件类型。
const (
	EventStatusChanged = "status_changed"
	EventDeleted       = "deleted"
)

// StatusEvent 是推送给状态订阅者的消息。
type StatusEvent struct {
	Type       string         `json:"type"`
	DocumentID string         `json:"documentId"`
	Status     DocumentStatus `json:"status,omitempty"`
	Message    *string        `json:"message,omitempty"`
	UpdatedAt  LocalTime      `json:"updatedAt"`
}

// NewStatusChangedEvent 根据文档当前状态构造一条 status_changed 事件。
func NewStatusChangedEvent(doc *Document) StatusEvent {
	return StatusEvent{
		Type:       EventStatusChanged,
		DocumentID: doc.ID,
		Status:     doc.Status,
		Message:    doc.Message,
		UpdatedAt:  LocalTime(doc.UpdatedAt),
	}
}
