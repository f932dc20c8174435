package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"空字符串", "", ""},
		{"单字符", "a", "*"},
		{"两个字符", "张三", "张*"},
		{"三个字符", "王小明", "王*明"},
		{"邮箱", "myemail@example.com", "my***************om"},
		{"手机号", "13812345678", "13*******78"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskPII(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	// 短于上限不截断
	assert.Equal(t, "hello", TruncateString("hello", 10))

	// 截断后保留前后部分，中间用省略号连接
	long := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	got := TruncateString(long, 21)
	assert.LessOrEqual(t, len([]rune(got)), 21)
	assert.Contains(t, got, "...")
	assert.True(t, strings.HasPrefix(got, "aaa"))
	assert.True(t, strings.HasSuffix(got, "bbb"))
}

func TestSafeAttributeValue(t *testing.T) {
	// 敏感字段名触发掩码
	masked := SafeAttributeValue("display_name", "María García", DefaultMaxLength)
	assert.NotEqual(t, "María García", masked)
	assert.Contains(t, masked, "*")
}

func TestSafeRedisKey(t *testing.T) {
	key := "app:profile:" + strings.Repeat("x", 200)
	got := SafeRedisKey(key)
	assert.LessOrEqual(t, len([]rune(got)), MaxRedisLength)
}
