package parser_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"talent-match-go/internal/config"
	"talent-match-go/internal/parser"
	"talent-match-go/internal/textproc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaggerClient_RequiresEndpoint(t *testing.T) {
	_, err := parser.NewTaggerClient(config.TaggerConfig{})
	assert.Error(t, err)
}

func TestTaggerClient_TagEntities(t *testing.T) {
	var capturedReq map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/entities", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &capturedReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities": [{"text": "Django", "label": "PRODUCT"}, {"text": "Google", "label": "ORG"}]}`))
	}))
	defer server.Close()

	client, err := parser.NewTaggerClient(config.TaggerConfig{Endpoint: server.URL, Language: "es"})
	require.NoError(t, err)

	spans, err := client.TagEntities(context.Background(), "Experiencia con Django en Google")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, textproc.EntitySpan{Text: "Django", Label: textproc.LabelProduct}, spans[0])
	assert.Equal(t, textproc.EntitySpan{Text: "Google", Label: textproc.LabelOrganization}, spans[1])

	assert.Equal(t, "es", capturedReq["language"])
	assert.Equal(t, "Experiencia con Django en Google", capturedReq["text"])
}

func TestTaggerClient_ChunkNounPhrases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/noun-phrases", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"phrases": [{"text": "machine learning", "token_count": 2}]}`))
	}))
	defer server.Close()

	client, err := parser.NewTaggerClient(config.TaggerConfig{Endpoint: server.URL})
	require.NoError(t, err)

	phrases, err := client.ChunkNounPhrases(context.Background(), "proyectos de machine learning")
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, "machine learning", phrases[0].Text)
	assert.Equal(t, 2, phrases[0].TokenCount)
}

func TestTaggerClient_TagPartOfSpeech(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pos", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tokens": [{"text": "python", "tag": "PROPN"}, {"text": "programar", "tag": "VERB"}]}`))
	}))
	defer server.Close()

	client, err := parser.NewTaggerClient(config.TaggerConfig{Endpoint: server.URL})
	require.NoError(t, err)

	tokens, err := client.TagPartOfSpeech(context.Background(), "programar en python")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, textproc.PosProperNoun, tokens[0].Tag)
	assert.Equal(t, textproc.PosVerb, tokens[1].Tag)
}

func TestTaggerClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := parser.NewTaggerClient(config.TaggerConfig{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = client.TagEntities(context.Background(), "texto")
	assert.Error(t, err)
}
