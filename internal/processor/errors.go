package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrDocumentDownloadFailed = errors.New("下载档案文档失败")
	ErrStoreTextFailed        = errors.New("上传解析文本失败")
	ErrEmbeddingFailed        = errors.New("生成档案向量失败")
	ErrStoreSyncFailed        = errors.New("双存储同步失败")
	ErrDuplicateDocument      = errors.New("文档内容重复")
	ErrDatabaseFailed         = errors.New("数据库操作失败")
)

// 组件未初始化错误
var (
	ErrStorageNotInit   = errors.New("存储服务未初始化")
	ErrExtractorNotInit = errors.New("档案抽取器未初始化")
	ErrEmbedderNotInit  = errors.New("文本嵌入器未初始化")
	ErrSyncNotInit      = errors.New("同步协调器未初始化")
)

// ProfileProcessError 包含详细错误信息的自定义错误。
// Cause 保留底层错误链,调用方可以用 errors.Is/As 识别存储驱动的具体错误。
type ProfileProcessError struct {
	Identifier string
	Op         string
	BaseErr    error
	Cause      error
	Detail     string
}

func (e *ProfileProcessError) Error() string {
	msg := fmt.Sprintf("%s (操作:%s, 标识符:%s)", e.BaseErr, e.Op, e.Identifier)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProfileProcessError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.BaseErr, e.Cause}
	}
	return []error{e.BaseErr}
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProfileProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewDownloadError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "download",
		BaseErr:    ErrDocumentDownloadFailed,
		Detail:     detail,
	}
}

func NewStoreTextError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "store",
		BaseErr:    ErrStoreTextFailed,
		Detail:     detail,
	}
}

func NewEmbeddingError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "embed",
		BaseErr:    ErrEmbeddingFailed,
		Detail:     detail,
	}
}

func NewSyncError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "sync",
		BaseErr:    ErrStoreSyncFailed,
		Detail:     detail,
	}
}

func NewDuplicateError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "dedup",
		BaseErr:    ErrDuplicateDocument,
		Detail:     detail,
	}
}

func NewDatabaseError(identifier, detail string) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "database",
		BaseErr:    ErrDatabaseFailed,
		Detail:     detail,
	}
}

// 带底层错误的构造函数,同步路径的存储失败用这组,保证错误链不断
func WrapDatabaseError(identifier, detail string, cause error) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "database",
		BaseErr:    ErrDatabaseFailed,
		Cause:      cause,
		Detail:     detail,
	}
}

func WrapSyncError(identifier, detail string, cause error) error {
	return &ProfileProcessError{
		Identifier: identifier,
		Op:         "sync",
		BaseErr:    ErrStoreSyncFailed,
		Cause:      cause,
		Detail:     detail,
	}
}
