package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRelationalStore 以内存map模拟关系镜像，技能关联整体替换
type fakeRelationalStore struct {
	mu               sync.Mutex
	candidates       map[string]*models.CandidateRecord
	requirements     map[string]*models.RequirementRecord
	candidateSkills  map[string][]string
	saveCandidateErr error
}

func newFakeRelationalStore() *fakeRelationalStore {
	return &fakeRelationalStore{
		candidates:      make(map[string]*models.CandidateRecord),
		requirements:    make(map[string]*models.RequirementRecord),
		candidateSkills: make(map[string][]string),
	}
}

func (f *fakeRelationalStore) SaveCandidateWithSkills(ctx context.Context, record *models.CandidateRecord, skillNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveCandidateErr != nil {
		return f.saveCandidateErr
	}
	f.candidates[record.CandidateID] = record
	// 整体替换语义
	f.candidateSkills[record.CandidateID] = append([]string(nil), skillNames...)
	return nil
}

func (f *fakeRelationalStore) SaveRequirementWithSkills(ctx context.Context, record *models.RequirementRecord, skillNames []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requirements[record.RequirementID] = record
	return nil
}

// fakeVectorUpserter 记录向量写入调用
type fakeVectorUpserter struct {
	mu         sync.Mutex
	upsertErr  error
	upsertKeys []string
	vectors    map[string][]float64
}

func newFakeVectorUpserter() *fakeVectorUpserter {
	return &fakeVectorUpserter{vectors: make(map[string][]float64)}
}

func (f *fakeVectorUpserter) UpsertProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	key := string(kind) + ":" + identifier
	f.upsertKeys = append(f.upsertKeys, key)
	f.vectors[key] = vector
	return storage.ProfilePointID(kind, identifier), nil
}

// fakeVectorCache 记录缓存写入
type fakeVectorCache struct {
	mu     sync.Mutex
	setErr error
	writes int
}

func (f *fakeVectorCache) SetProfileVector(ctx context.Context, kind types.ProfileKind, identifier string, vector []float64, modelVersion string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.writes++
	return nil
}

// fakeEmbedder 返回固定维度的确定性向量
type fakeEmbedder struct {
	dims     int
	embedErr error
}

func (f *fakeEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		v := make([]float64, f.dims)
		for j := range v {
			v[j] = float64(len(texts[i])%10) / 10.0
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) GetDimensions() int { return f.dims }

// fakeExtractor 返回预置档案
type fakeExtractor struct {
	skills []string
	years  int
}

func (f *fakeExtractor) ExtractCandidateProfile(ctx context.Context, identifier, text string) *types.EntityProfile {
	return &types.EntityProfile{
		Identifier:      identifier,
		Kind:            types.KindCandidateProfile,
		Skills:          append([]string(nil), f.skills...),
		ExperienceYears: f.years,
		Education:       []string{"ingeniería en sistemas"},
		Languages:       []string{"español", "inglés"},
	}
}

func (f *fakeExtractor) ExtractRequirementProfile(ctx context.Context, identifier, text string) *types.EntityProfile {
	return &types.EntityProfile{
		Identifier: identifier,
		Kind:       types.KindRequirementProfile,
		Skills:     append([]string(nil), f.skills...),
		Topics:     []string{"desarrollo web"},
	}
}

func sampleMeta() DocumentMeta {
	return DocumentMeta{
		DisplayName:     "Ana García",
		RawTextMD5:      "0123456789abcdef0123456789abcdef",
		OriginalPathOSS: "candidate/cand-001/original.txt",
		ParsedTextPath:  "candidate/cand-001/parsed.txt",
	}
}

func sampleProfile(identifier string) *types.EntityProfile {
	return &types.EntityProfile{
		Identifier:      identifier,
		Kind:            types.KindCandidateProfile,
		Skills:          []string{"python", "django", "postgresql"},
		ExperienceYears: 5,
		Education:       []string{"licenciatura en informática"},
		Certifications:  []string{"aws certified developer"},
		Languages:       []string{"español"},
	}
}

func TestSyncCandidate_Success(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	cache := &fakeVectorCache{}
	coord := NewDualStoreSyncCoordinator(relational, vectors, cache, "text-embedding-v3")

	pointID, err := coord.SyncCandidate(context.Background(), sampleProfile("cand-001"), []float64{0.1, 0.2, 0.3}, sampleMeta())
	require.NoError(t, err)
	assert.Equal(t, storage.ProfilePointID(types.KindCandidateProfile, "cand-001"), pointID)

	record := relational.candidates["cand-001"]
	require.NotNil(t, record)
	assert.Equal(t, "Ana García", record.DisplayName)
	assert.Equal(t, 5, record.ExperienceYears)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", record.RawTextMD5)

	var education []string
	require.NoError(t, json.Unmarshal(record.EducationJSON, &education))
	assert.Equal(t, []string{"licenciatura en informática"}, education)

	assert.Equal(t, []string{"python", "django", "postgresql"}, relational.candidateSkills["cand-001"])
	assert.Equal(t, 1, cache.writes)
}

func TestSyncCandidate_Idempotent(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")

	profile := sampleProfile("cand-002")
	vector := []float64{0.4, 0.5}

	first, err := coord.SyncCandidate(context.Background(), profile, vector, sampleMeta())
	require.NoError(t, err)
	second, err := coord.SyncCandidate(context.Background(), profile, vector, sampleMeta())
	require.NoError(t, err)

	// 重复同步得到同一个点ID，技能关联数量不变
	assert.Equal(t, first, second)
	assert.Len(t, relational.candidateSkills["cand-002"], 3)
	assert.Len(t, relational.candidates, 1)
	assert.Equal(t, vector, vectors.vectors["CANDIDATE:cand-002"])
}

func TestSyncCandidate_RelationalFailure(t *testing.T) {
	dbErr := errors.New("connection refused")
	relational := newFakeRelationalStore()
	relational.saveCandidateErr = dbErr
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")

	_, err := coord.SyncCandidate(context.Background(), sampleProfile("cand-003"), []float64{0.1}, sampleMeta())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDatabaseFailed)
	// 底层驱动错误必须留在错误链里，调用方据此区分可重试失败
	assert.ErrorIs(t, err, dbErr)
	// 关系镜像失败后不应写向量库
	assert.Empty(t, vectors.upsertKeys)
}

func TestSyncCandidate_VectorFailure(t *testing.T) {
	upsertErr := errors.New("qdrant unavailable")
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	vectors.upsertErr = upsertErr
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")

	_, err := coord.SyncCandidate(context.Background(), sampleProfile("cand-004"), []float64{0.1}, sampleMeta())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreSyncFailed)
	assert.ErrorIs(t, err, upsertErr)
}

func TestSyncCandidate_CacheFailureIsNonFatal(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	cache := &fakeVectorCache{setErr: errors.New("redis down")}
	coord := NewDualStoreSyncCoordinator(relational, vectors, cache, "text-embedding-v3")

	_, err := coord.SyncCandidate(context.Background(), sampleProfile("cand-005"), []float64{0.1}, sampleMeta())
	assert.NoError(t, err)
}

func TestSyncRequirement_Success(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")

	profile := &types.EntityProfile{
		Identifier:    "req-001",
		Kind:          types.KindRequirementProfile,
		Skills:        []string{"go", "docker"},
		Topics:        []string{"microservicios"},
		Prerequisites: []string{"experiencia con apis rest"},
	}
	meta := DocumentMeta{DisplayName: "Backend Developer", RawTextMD5: "ffff", OriginalPathOSS: "requirement/req-001/original.txt"}

	pointID, err := coord.SyncRequirement(context.Background(), profile, []float64{0.9}, meta)
	require.NoError(t, err)
	assert.Equal(t, storage.ProfilePointID(types.KindRequirementProfile, "req-001"), pointID)

	record := relational.requirements["req-001"]
	require.NotNil(t, record)
	assert.Equal(t, "Backend Developer", record.Title)

	var topics []string
	require.NoError(t, json.Unmarshal(record.TopicsJSON, &topics))
	assert.Equal(t, []string{"microservicios"}, topics)
}

func TestSync_MissingIdentifier(t *testing.T) {
	coord := NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")

	_, err := coord.SyncCandidate(context.Background(), &types.EntityProfile{}, []float64{0.1}, DocumentMeta{})
	assert.ErrorIs(t, err, ErrStoreSyncFailed)

	_, err = coord.SyncRequirement(context.Background(), nil, []float64{0.1}, DocumentMeta{})
	assert.ErrorIs(t, err, ErrStoreSyncFailed)
}

func newTestProcessor(embedder TextEmbedder, extractor ProfileExtractor, coord *DualStoreSyncCoordinator) *ProfileProcessor {
	comp := &Components{
		Extractor: extractor,
		Embedder:  embedder,
		Sync:      coord,
		Storage:   &storage.Storage{},
	}
	return NewProfileProcessor(comp, &Settings{DefaultDimensions: 4, Concurrency: 2})
}

func TestProcessCandidateDocument(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")
	extractor := &fakeExtractor{skills: []string{"python", "sql"}, years: 3}
	proc := newTestProcessor(&fakeEmbedder{dims: 4}, extractor, coord)

	profile, pointID, err := proc.ProcessCandidateDocument(context.Background(), "cand-010", "desarrolladora con 3 años de experiencia en python", sampleMeta())
	require.NoError(t, err)
	assert.Equal(t, "cand-010", profile.Identifier)
	assert.Equal(t, 3, profile.ExperienceYears)
	assert.NotEmpty(t, pointID)
	assert.Len(t, vectors.vectors["CANDIDATE:cand-010"], 4)
}

func TestProcessRequirementDocument(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "text-embedding-v3")
	proc := newTestProcessor(&fakeEmbedder{dims: 4}, &fakeExtractor{skills: []string{"go"}}, coord)

	profile, pointID, err := proc.ProcessRequirementDocument(context.Background(), "req-010", "se busca desarrollador go", DocumentMeta{DisplayName: "Go Developer"})
	require.NoError(t, err)
	assert.Equal(t, types.KindRequirementProfile, profile.Kind)
	assert.NotEmpty(t, pointID)
	require.NotNil(t, relational.requirements["req-010"])
}

func TestProcessDocument_EmbeddingFailure(t *testing.T) {
	coord := NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")
	proc := newTestProcessor(&fakeEmbedder{dims: 4, embedErr: errors.New("rate limited")}, &fakeExtractor{}, coord)

	_, _, err := proc.ProcessCandidateDocument(context.Background(), "cand-011", "texto", sampleMeta())
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestProcessDocument_EmptyText(t *testing.T) {
	coord := NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")
	proc := newTestProcessor(&fakeEmbedder{dims: 4}, &fakeExtractor{}, coord)

	_, _, err := proc.ProcessCandidateDocument(context.Background(), "cand-012", "", sampleMeta())
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestProcessDocument_DimensionMismatch(t *testing.T) {
	coord := NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")
	// 嵌入器产出8维向量，处理器期望4维
	proc := newTestProcessor(&fakeEmbedder{dims: 8}, &fakeExtractor{}, coord)

	_, _, err := proc.ProcessCandidateDocument(context.Background(), "cand-013", "texto", sampleMeta())
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}

func TestCheckComponentsInitialized(t *testing.T) {
	proc := NewProfileProcessor(&Components{}, nil)
	assert.ErrorIs(t, proc.CheckComponentsInitialized(), ErrExtractorNotInit)

	proc.Extractor = &fakeExtractor{}
	assert.ErrorIs(t, proc.CheckComponentsInitialized(), ErrEmbedderNotInit)

	proc.Embedder = &fakeEmbedder{dims: 4}
	assert.ErrorIs(t, proc.CheckComponentsInitialized(), ErrSyncNotInit)

	proc.Sync = NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")
	assert.ErrorIs(t, proc.CheckComponentsInitialized(), ErrStorageNotInit)

	proc.Storage = &storage.Storage{}
	assert.NoError(t, proc.CheckComponentsInitialized())
}

func TestProcessDocuments_Batch(t *testing.T) {
	relational := newFakeRelationalStore()
	vectors := newFakeVectorUpserter()
	coord := NewDualStoreSyncCoordinator(relational, vectors, nil, "v1")
	proc := newTestProcessor(&fakeEmbedder{dims: 4}, &fakeExtractor{skills: []string{"java"}}, coord)

	docs := []BatchDocument{
		{Identifier: "cand-020", Kind: types.KindCandidateProfile, Text: "perfil uno", Meta: sampleMeta()},
		{Identifier: "req-020", Kind: types.KindRequirementProfile, Text: "requisito uno", Meta: DocumentMeta{DisplayName: "Req"}},
		{Identifier: "cand-021", Kind: types.KindCandidateProfile, Text: "", Meta: sampleMeta()}, // 空文本触发失败
	}

	results := proc.ProcessDocuments(context.Background(), docs)
	require.Len(t, results, 3)

	// 结果按输入顺序排列
	assert.Equal(t, "cand-020", results[0].Identifier)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "req-020", results[1].Identifier)
	assert.NoError(t, results[1].Err)

	// 单个失败不影响其他文档
	assert.ErrorIs(t, results[2].Err, ErrEmbeddingFailed)
	assert.Len(t, relational.candidates, 1)
	assert.Len(t, relational.requirements, 1)
}

func TestProcessDocuments_Empty(t *testing.T) {
	coord := NewDualStoreSyncCoordinator(newFakeRelationalStore(), newFakeVectorUpserter(), nil, "v1")
	proc := newTestProcessor(&fakeEmbedder{dims: 4}, &fakeExtractor{}, coord)
	assert.Empty(t, proc.ProcessDocuments(context.Background(), nil))
}

// fakeProfileService 记录收到的消息
type fakeProfileService struct {
	processErr error
	received   []storage.DocumentUploadMessage
}

func (f *fakeProfileService) ProcessUploadedDocument(ctx context.Context, message storage.DocumentUploadMessage) error {
	f.received = append(f.received, message)
	return f.processErr
}

func TestDocumentUploadHandler_Success(t *testing.T) {
	svc := &fakeProfileService{}
	handler := NewDocumentUploadHandler(svc)

	msg := storage.DocumentUploadMessage{Identifier: "cand-030", Kind: types.KindCandidateProfile}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.True(t, handler(body))
	require.Len(t, svc.received, 1)
	assert.Equal(t, "cand-030", svc.received[0].Identifier)
}

func TestDocumentUploadHandler_InvalidJSON(t *testing.T) {
	svc := &fakeProfileService{}
	handler := NewDocumentUploadHandler(svc)

	// 脏消息直接ack丢弃，不重试
	assert.True(t, handler([]byte("{not json")))
	assert.Empty(t, svc.received)
}

func TestDocumentUploadHandler_ProcessingFailureRequeues(t *testing.T) {
	svc := &fakeProfileService{processErr: fmt.Errorf("transient: %w", ErrStoreSyncFailed)}
	handler := NewDocumentUploadHandler(svc)

	msg := storage.DocumentUploadMessage{Identifier: "cand-031", Kind: types.KindCandidateProfile}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.False(t, handler(body))
}

func TestDocumentUploadHandler_DuplicateAcks(t *testing.T) {
	svc := &fakeProfileService{processErr: NewDuplicateError("cand-032", "与档案 cand-001 内容相同")}
	handler := NewDocumentUploadHandler(svc)

	msg := storage.DocumentUploadMessage{Identifier: "cand-032", Kind: types.KindCandidateProfile}
	body, err := json.Marshal(msg)
	require.NoError(t, err)

	// 重复内容不重试，直接确认
	assert.True(t, handler(body))
}

func TestProfileProcessError_Formatting(t *testing.T) {
	err := NewEmbeddingError("cand-040", "timeout")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)

	var procErr *ProfileProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "cand-040", procErr.Identifier)
	assert.Equal(t, "embed", procErr.Op)
	assert.Contains(t, err.Error(), "timeout")
}
