package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"talent-match-go/internal/config"
	"talent-match-go/internal/textproc"
)

// TaggerClient 旁路标注服务的HTTP客户端，实现 textproc.LanguageModel。
// 标注服务提供命名实体识别、名词短语分块与词性标注三个端点。
type TaggerClient struct {
	endpoint   string
	language   string
	httpClient *http.Client
}

// 确保TaggerClient实现了LanguageModel接口
var _ textproc.LanguageModel = (*TaggerClient)(nil)

// NewTaggerClient 创建标注服务客户端
func NewTaggerClient(cfg config.TaggerConfig) (*TaggerClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("标注服务地址不能为空")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	language := cfg.Language
	if language == "" {
		language = "es"
	}

	return &TaggerClient{
		endpoint:   cfg.Endpoint,
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// taggerRequest 标注请求体
type taggerRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// taggerEntity 标注服务返回的实体
type taggerEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// taggerPhrase 标注服务返回的名词短语
type taggerPhrase struct {
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// taggerToken 标注服务返回的词性标注
type taggerToken struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}

// TagEntities 标注文本中的命名实体
func (c *TaggerClient) TagEntities(ctx context.Context, text string) ([]textproc.EntitySpan, error) {
	var result struct {
		Entities []taggerEntity `json:"entities"`
	}
	if err := c.doRequest(ctx, "/entities", text, &result); err != nil {
		return nil, fmt.Errorf("实体标注请求失败: %w", err)
	}

	spans := make([]textproc.EntitySpan, 0, len(result.Entities))
	for _, e := range result.Entities {
		spans = append(spans, textproc.EntitySpan{
			Text:  e.Text,
			Label: textproc.EntityLabel(e.Label),
		})
	}
	return spans, nil
}

// ChunkNounPhrases 提取文本中的名词短语块
func (c *TaggerClient) ChunkNounPhrases(ctx context.Context, text string) ([]textproc.NounPhrase, error) {
	var result struct {
		Phrases []taggerPhrase `json:"phrases"`
	}
	if err := c.doRequest(ctx, "/noun-phrases", text, &result); err != nil {
		return nil, fmt.Errorf("名词短语分块请求失败: %w", err)
	}

	phrases := make([]textproc.NounPhrase, 0, len(result.Phrases))
	for _, p := range result.Phrases {
		phrases = append(phrases, textproc.NounPhrase{
			Text:       p.Text,
			TokenCount: p.TokenCount,
		})
	}
	return phrases, nil
}

// TagPartOfSpeech 对文本分词并标注词性
func (c *TaggerClient) TagPartOfSpeech(ctx context.Context, text string) ([]textproc.TaggedToken, error) {
	var result struct {
		Tokens []taggerToken `json:"tokens"`
	}
	if err := c.doRequest(ctx, "/pos", text, &result); err != nil {
		return nil, fmt.Errorf("词性标注请求失败: %w", err)
	}

	tokens := make([]textproc.TaggedToken, 0, len(result.Tokens))
	for _, tok := range result.Tokens {
		tokens = append(tokens, textproc.TaggedToken{
			Text: tok.Text,
			Tag:  textproc.POSTag(tok.Tag),
		})
	}
	return tokens, nil
}

func (c *TaggerClient) doRequest(ctx context.Context, path string, text string, result interface{}) error {
	jsonData, err := json.Marshal(taggerRequest{Text: text, Language: c.language})
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("标注服务返回错误, 状态码: %d, 响应: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应JSON失败: %w", err)
	}
	return nil
}
