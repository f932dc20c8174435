package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// CalculateMD5 计算字节切片的MD5十六进制摘要，用于文档内容去重
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// IsValidMD5Hex 校验字符串是否为合法的32位十六进制MD5
func IsValidMD5Hex(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range strings.ToLower(s) {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
