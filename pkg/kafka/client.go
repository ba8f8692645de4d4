// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docflow-go/internal/config"
	"docflow-go/pkg/log"
	"docflow-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

const defaultWriteTimeout = 10 * time.Second

// messageWriter 是 kafka.Writer 的最小子集，测试时可替换。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 向单一配置主题发送文档处理任务。
type Producer struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.BrokerList()...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
	log.Infof("Kafka 生产者初始化成功, topic=%s", cfg.Topic)
	return newProducer(writer, cfg.Topic, cfg.WriteTimeout)
}

func newProducer(writer messageWriter, topic string, writeTimeout time.Duration) *Producer {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Producer{writer: writer, topic: topic, writeTimeout: writeTimeout}
}

// PublishDocumentTask 发送一个文档处理任务，消息 key 为 documentId，保证同一文档有序。
func (p *Producer) PublishDocumentTask(ctx context.Context, task tasks.DocumentTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.DocumentID),
		Value: taskBytes,
	})
	if err != nil {
		return fmt.Errorf("发送任务到 topic %s 失败: %w", p.topic, err)
	}
	log.Infof("[PublishDocumentTask] 任务已发送, documentId=%s, topic=%s", task.DocumentID, p.topic)
	return nil
}

// Close 刷新并关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}
