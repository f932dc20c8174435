package storage

import (
	"time"

	"talent-match-go/internal/types"
)

// DocumentUploadMessage 文档上传事件消息
type DocumentUploadMessage struct {
	// 与数据库表字段一致的主要字段
	Identifier       string            `json:"identifier"`               // 档案标识符
	Kind             types.ProfileKind `json:"kind"`                     // 档案类型: CANDIDATE / REQUIREMENT
	UploadedAt       time.Time         `json:"uploaded_at"`              // 上传时间戳
	SourceChannel    string            `json:"source_channel,omitempty"` // 来源渠道
	OriginalFilename string            `json:"original_filename"`        // 原始文件名
	OriginalPathOSS  string            `json:"original_path_oss"`        // MinIO中的对象路径
	RawFileMD5       string            `json:"raw_file_md5,omitempty"`   // 原始文件的MD5，用于失败时回滚去重记录
	DisplayName      string            `json:"display_name,omitempty"`   // 展示名称
}

// DocumentProcessedMessage 文档处理完成消息
type DocumentProcessedMessage struct {
	Identifier        string            `json:"identifier"`                     // 档案标识符
	Kind              types.ProfileKind `json:"kind"`                           // 档案类型
	ParsedTextPathOSS string            `json:"parsed_text_path_oss,omitempty"` // 解析文本在MinIO中的路径

	// 处理状态相关字段
	ProcessingStatus string `json:"processing_status,omitempty"` // 处理状态
	ProcessedAt      int64  `json:"processed_at,omitempty"`      // 处理时间戳

	// 文本内容 (当不想通过存储服务传递时使用)
	ParsedText string `json:"parsed_text,omitempty"` // 解析后的文本内容

	// 其他辅助字段
	VectorPointID string `json:"vector_point_id,omitempty"` // 关联的向量点ID
	Error         string `json:"error,omitempty"`           // 错误信息
}
