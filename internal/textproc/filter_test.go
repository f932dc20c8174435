package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspect_RejectReasons(t *testing.T) {
	// 规则链各分支的代表用例
	cases := []struct {
		candidate string
		want      RejectReason
	}{
		{"a", RejectLength},
		{"ab", RejectLength},
		{"123", RejectNumeric},
		{"2023", RejectNumeric},
		{"para", RejectStopword},
		{"universidad", RejectStopword},
		{"juan", RejectPersonName},
		{"garcía", RejectPersonName},
		{"universidad nacional cien de trujillo peru", RejectSentence},
		{"proyecto", RejectGeneric},
		{"development", RejectGeneric},
		{"user_name", RejectForbiddenChar},
		{"test@example.com", RejectForbiddenChar},
		{" python ", RejectWhitespace},
		{"python", RejectNone},
		{"aws", RejectNone},
		{"machine learning", RejectNone},
		{"data-driven", RejectNone},
		{"c++", RejectNone},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Inspect(tc.candidate), "candidate=%q", tc.candidate)
	}
}

func TestInspect_LengthBounds(t *testing.T) {
	// 长度按 rune 计而不是字节
	assert.Equal(t, RejectNone, Inspect("sql"))
	assert.Equal(t, RejectLength, Inspect("ñu"))

	long := make([]byte, 0, 51)
	for i := 0; i < 51; i++ {
		long = append(long, 'x')
	}
	assert.Equal(t, RejectLength, Inspect(string(long)))
}

func TestInspect_EmbeddedSpaces(t *testing.T) {
	// 四个内嵌空格仍可接受，第五个开始视为整句
	assert.Equal(t, RejectNone, Inspect("base de datos relacional avanzada"))
	assert.Equal(t, RejectSentence, Inspect("una dos tres cuatro cinco seis"))
}

func TestFilterCandidates_SortedDeterministic(t *testing.T) {
	input := map[string]struct{}{
		"python":   {},
		"a":        {},
		"docker":   {},
		"123":      {},
		"proyecto": {},
		"aws":      {},
	}

	got := FilterCandidates(input)
	assert.Equal(t, []string{"aws", "docker", "python"}, got)

	// 同一输入重复过滤得到同一输出
	assert.Equal(t, got, FilterCandidates(input))
}

func TestFilterCandidates_Empty(t *testing.T) {
	assert.Empty(t, FilterCandidates(nil))
	assert.Empty(t, FilterCandidates(map[string]struct{}{}))
}
