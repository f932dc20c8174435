package storage

import (
	"context"
	"errors"

	"talent-match-go/internal/types"
)

// ErrVectorDBNotConfigured 向量数据库未配置
var ErrVectorDBNotConfigured = errors.New("vector database is not configured")

// ErrVectorNotFound 请求的向量点不存在
var ErrVectorNotFound = errors.New("profile vector not found")

// ProfileVectorStore 提供档案向量存储功能。
// 未配置底层向量库时所有操作返回 ErrVectorDBNotConfigured。
type ProfileVectorStore struct {
	VectorDB VectorDatabase
}

// UpsertProfileVector 写入档案向量
func (s *ProfileVectorStore) UpsertProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64) (string, error) {
	if s.VectorDB == nil {
		return "", ErrVectorDBNotConfigured
	}
	return s.VectorDB.UpsertProfileVector(ctx, kind, identifier, vector)
}

// SearchSimilarProfiles 搜索相似档案
func (s *ProfileVectorStore) SearchSimilarProfiles(ctx context.Context, queryVector []float64, kind types.ProfileKind, limit int) ([]SearchResult, error) {
	if s.VectorDB == nil {
		return nil, ErrVectorDBNotConfigured
	}
	return s.VectorDB.SearchSimilarProfiles(ctx, queryVector, kind, limit)
}

// GetProfileVector 取回已存储的档案向量
func (s *ProfileVectorStore) GetProfileVector(ctx context.Context, kind types.ProfileKind, identifier string) ([]float64, error) {
	if s.VectorDB == nil {
		return nil, ErrVectorDBNotConfigured
	}
	return s.VectorDB.GetProfileVector(ctx, kind, identifier)
}

// DeleteProfileVector 删除档案向量
func (s *ProfileVectorStore) DeleteProfileVector(ctx context.Context, kind types.ProfileKind, identifier string) error {
	if s.VectorDB == nil {
		return ErrVectorDBNotConfigured
	}
	return s.VectorDB.DeleteProfileVector(ctx, kind, identifier)
}
