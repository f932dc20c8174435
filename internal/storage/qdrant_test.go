package storage_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"talent-match-go/internal/config"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockQdrantServer 返回一个模拟Qdrant REST接口的测试服务器。
// handler为nil的路由返回集合已存在的默认响应。
func newMockQdrantServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 集合存在性检查
		if r.Method == http.MethodGet && r.URL.Path == "/collections/profiles" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":4,"distance":"Euclid"}}}},"status":"ok","time":0.001}`))
			return
		}
		if handler != nil {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))
}

func newTestQdrant(t *testing.T, server *httptest.Server) *storage.Qdrant {
	t.Helper()
	q, err := storage.NewQdrant(&config.QdrantConfig{
		Endpoint:   server.URL,
		Collection: "profiles",
		Dimension:  4,
	})
	require.NoError(t, err)
	return q
}

func TestProfilePointID_Deterministic(t *testing.T) {
	a := storage.ProfilePointID(types.KindCandidateProfile, "cand-001")
	b := storage.ProfilePointID(types.KindCandidateProfile, "cand-001")
	assert.Equal(t, a, b, "同一档案应派生相同的点ID")

	c := storage.ProfilePointID(types.KindRequirementProfile, "cand-001")
	assert.NotEqual(t, a, c, "不同类型的档案不应共享点ID")

	d := storage.ProfilePointID(types.KindCandidateProfile, "cand-002")
	assert.NotEqual(t, a, d)
}

func TestUpsertProfileVector(t *testing.T) {
	var capturedBody map[string]interface{}

	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/profiles/points" {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &capturedBody))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok","time":0.002}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	pointID, err := q.UpsertProfileVector(context.Background(), types.KindCandidateProfile, "cand-001", []float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	assert.Equal(t, storage.ProfilePointID(types.KindCandidateProfile, "cand-001"), pointID)

	points, ok := capturedBody["points"].([]interface{})
	require.True(t, ok)
	require.Len(t, points, 1)
	point := points[0].(map[string]interface{})
	assert.Equal(t, pointID, point["id"])
	payload := point["payload"].(map[string]interface{})
	assert.Equal(t, "cand-001", payload["identifier"])
	assert.Equal(t, "CANDIDATE", payload["kind"])
}

func TestUpsertProfileVector_DimensionMismatch(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	q := newTestQdrant(t, server)

	_, err := q.UpsertProfileVector(context.Background(), types.KindCandidateProfile, "cand-001", []float64{0.1, 0.2})
	assert.Error(t, err)
}

func TestUpsertProfileVector_EmptyIdentifier(t *testing.T) {
	server := newMockQdrantServer(t, nil)
	defer server.Close()

	q := newTestQdrant(t, server)

	_, err := q.UpsertProfileVector(context.Background(), types.KindCandidateProfile, "", []float64{0.1, 0.2, 0.3, 0.4})
	assert.Error(t, err)
}

func TestSearchSimilarProfiles(t *testing.T) {
	var capturedReq map[string]interface{}

	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/profiles/points/search" {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &capturedReq))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"result": [
					{"id": "id-1", "score": 0.35, "payload": {"identifier": "cand-001", "kind": "CANDIDATE"}},
					{"id": "id-2", "score": 1.20, "payload": {"identifier": "cand-002", "kind": "CANDIDATE"}}
				],
				"status": "ok",
				"time": 0.003
			}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	results, err := q.SearchSimilarProfiles(context.Background(), []float64{0.1, 0.2, 0.3, 0.4}, types.KindCandidateProfile, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "cand-001", results[0].Identifier())
	assert.InDelta(t, 0.35, results[0].Score, 1e-6)
	assert.Equal(t, "cand-002", results[1].Identifier())

	// 搜索请求应带有档案类型过滤条件
	filter := capturedReq["filter"].(map[string]interface{})
	must := filter["must"].([]interface{})
	require.Len(t, must, 1)
	cond := must[0].(map[string]interface{})
	assert.Equal(t, "kind", cond["key"])
	match := cond["match"].(map[string]interface{})
	assert.Equal(t, "CANDIDATE", match["value"])
	assert.Equal(t, float64(5), capturedReq["limit"])
}

func TestGetProfileVector(t *testing.T) {
	pointID := storage.ProfilePointID(types.KindRequirementProfile, "req-001")

	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/profiles/points" {
			var req map[string]interface{}
			body, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(body, &req))
			ids := req["ids"].([]interface{})
			require.Len(t, ids, 1)
			assert.Equal(t, pointID, ids[0])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[{"id":"` + pointID + `","vector":[0.5,0.6,0.7,0.8]}],"status":"ok","time":0.001}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	vector, err := q.GetProfileVector(context.Background(), types.KindRequirementProfile, "req-001")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.6, 0.7, 0.8}, vector)
}

func TestGetProfileVector_NotFound(t *testing.T) {
	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/profiles/points" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":[],"status":"ok","time":0.001}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	_, err := q.GetProfileVector(context.Background(), types.KindCandidateProfile, "missing")
	assert.ErrorIs(t, err, storage.ErrVectorNotFound)
}

func TestDeleteProfileVector(t *testing.T) {
	var deleted bool

	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/profiles/points/delete" {
			deleted = true
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok","time":0.001}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	err := q.DeleteProfileVector(context.Background(), types.KindCandidateProfile, "cand-001")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestCountPoints(t *testing.T) {
	server := newMockQdrantServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/collections/profiles/points/count" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"result":{"count":42},"status":"ok","time":0.001}`))
			return
		}
		http.NotFound(w, r)
	})
	defer server.Close()

	q := newTestQdrant(t, server)

	count, err := q.CountPoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestProfileVectorStore_NotConfigured(t *testing.T) {
	store := &storage.ProfileVectorStore{}

	_, err := store.UpsertProfileVector(context.Background(), types.KindCandidateProfile, "cand-001", []float64{0.1})
	assert.ErrorIs(t, err, storage.ErrVectorDBNotConfigured)

	_, err = store.SearchSimilarProfiles(context.Background(), []float64{0.1}, types.KindCandidateProfile, 5)
	assert.ErrorIs(t, err, storage.ErrVectorDBNotConfigured)

	err = store.DeleteProfileVector(context.Background(), types.KindCandidateProfile, "cand-001")
	assert.ErrorIs(t, err, storage.ErrVectorDBNotConfigured)
}
