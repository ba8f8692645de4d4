// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"docflow-go/internal/config"
	"docflow-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// IndexPurger 在文档删除后清理 worker 写入的索引分块。
type IndexPurger struct {
	client    *elasticsearch.Client
	indexName string
}

// NewIndexPurger 初始化 Elasticsearch 客户端。未配置地址时返回 nil，调用方应跳过清理。
func NewIndexPurger(esCfg config.ElasticsearchConfig) (*IndexPurger, error) {
	if strings.TrimSpace(esCfg.Addresses) == "" {
		log.Info("未配置 elasticsearch.addresses，索引清理已关闭")
		return nil, nil
	}
	var addresses []string
	for _, addr := range strings.Split(esCfg.Addresses, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addresses = append(addresses, addr)
		}
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 Elasticsearch 客户端失败: %w", err)
	}
	log.Infof("Elasticsearch 客户端初始化成功, index=%s", esCfg.IndexName)
	return newIndexPurger(client, esCfg.IndexName), nil
}

func newIndexPurger(client *elasticsearch.Client, indexName string) *IndexPurger {
	return &IndexPurger{client: client, indexName: indexName}
}

// DeleteByDocumentID 删除 document_id 等于给定 ID 的所有分块，返回删除数量。索引不存在时视为成功。
func (p *IndexPurger) DeleteByDocumentID(ctx context.Context, documentID string) (int64, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"document_id": documentID,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, err
	}

	refresh := true
	req := esapi.DeleteByQueryRequest{
		Index:     []string{p.indexName},
		Body:      bytes.NewReader(body),
		Refresh:   &refresh,
		Conflicts: "proceed",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return 0, fmt.Errorf("调用 delete_by_query 失败: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		log.Warnf("[DeleteByDocumentID] 索引 '%s' 不存在，跳过清理", p.indexName)
		return 0, nil
	}
	if res.IsError() {
		log.Errorf("[DeleteByDocumentID] Elasticsearch 返回错误: %s", res.String())
		return 0, fmt.Errorf("delete_by_query 返回状态码 %d", res.StatusCode)
	}

	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("解析 delete_by_query 响应失败: %w", err)
	}
	log.Infof("[DeleteByDocumentID] 已清理索引分块: documentId=%s, deleted=%d", documentID, result.Deleted)
	return result.Deleted, nil
}
