package processor

import (
	"log"

	"talent-match-go/internal/storage"
)

// ComponentOpt 组件选项类型，仅改变 Components 结构体内的字段
type ComponentOpt func(*Components)

// SettingOpt 设置选项类型，仅改变 Settings 结构体内的字段
type SettingOpt func(*Settings)

// ----- 组件选项 -----

// WithcompExtractor 设置档案抽取组件
func WithcompExtractor(extractor ProfileExtractor) ComponentOpt {
	return func(c *Components) {
		c.Extractor = extractor
	}
}

// WithcompEmbedder 设置文本嵌入组件
func WithcompEmbedder(embedder TextEmbedder) ComponentOpt {
	return func(c *Components) {
		c.Embedder = embedder
	}
}

// WithcompSync 设置双存储同步协调器
func WithcompSync(sync *DualStoreSyncCoordinator) ComponentOpt {
	return func(c *Components) {
		c.Sync = sync
	}
}

// WithcompStorage 设置存储组件
func WithcompStorage(storage *storage.Storage) ComponentOpt {
	return func(c *Components) {
		c.Storage = storage
	}
}

// ----- 设置选项 -----

// WithsetDebug 设置调试模式
func WithsetDebug(debug bool) SettingOpt {
	return func(s *Settings) {
		s.Debug = debug
	}
}

// WithsetLogger 设置日志记录器
func WithsetLogger(logger *log.Logger) SettingOpt {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithsetDefaultdimensions 设置默认向量维度
func WithsetDefaultdimensions(dimensions int) SettingOpt {
	return func(s *Settings) {
		if dimensions > 0 {
			s.DefaultDimensions = dimensions
		}
	}
}

// WithsetConcurrency 设置批量处理并发度
func WithsetConcurrency(n int) SettingOpt {
	return func(s *Settings) {
		if n > 0 {
			s.Concurrency = n
		}
	}
}

// ApplyComponentOpts 按序应用组件选项
func ApplyComponentOpts(c *Components, opts ...ComponentOpt) {
	for _, opt := range opts {
		opt(c)
	}
}
