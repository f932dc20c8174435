package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_TechnicalTerms(t *testing.T) {
	// 技术词内部的连字符和结尾的 +/# 要保留
	assert.Equal(t, []string{"c++", "c#", "scikit-learn"}, Tokenize("c++ c# scikit-learn"))
	assert.Equal(t, []string{"node.js", "ci", "cd"}, Tokenize("node.js ci/cd"))
	assert.Empty(t, Tokenize(""))
}

func TestNormalizeTerm(t *testing.T) {
	assert.Equal(t, "python", NormalizeTerm("  Python "))
	assert.Equal(t, "machine learning", NormalizeTerm("Machine Learning"))
	assert.Equal(t, "", NormalizeTerm("   "))
}

func TestRemoveStopwords(t *testing.T) {
	got := RemoveStopwords([]string{"experiencia", "en", "Python", "y", "SQL"})
	assert.Equal(t, []string{"experiencia", "Python", "SQL"}, got)
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("  uno  \n\n dos\n\t\ntres ")
	assert.Equal(t, []string{"uno", "dos", "tres"}, got)
}
