package model

import (
	"fmt"
	"time"
)

// LocalTime 以 RFC3339 格式序列化时间，用于响应体和状态事件。
type LocalTime time.Time

const timeFormat = time.RFC3339

// MarshalJSON implements the json.Marshaler interface.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	formatted := fmt.Sprintf("\"%s\"", time.Time(t).UTC().Format(timeFormat))
	return []byte(formatted), nil
}
