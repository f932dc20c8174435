package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMD5(t *testing.T) {
	// 已知摘要值
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5(nil))
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", CalculateMD5([]byte("hello world")))
}

func TestIsValidMD5Hex(t *testing.T) {
	assert.True(t, IsValidMD5Hex("d41d8cd98f00b204e9800998ecf8427e"))
	assert.True(t, IsValidMD5Hex("D41D8CD98F00B204E9800998ECF8427E"))
	assert.False(t, IsValidMD5Hex(""))
	assert.False(t, IsValidMD5Hex("abc"))
	assert.False(t, IsValidMD5Hex("z41d8cd98f00b204e9800998ecf8427e"))
}
