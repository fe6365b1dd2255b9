package utils

import (
	"strconv"
	"strings"
)

// StripToASCII 去掉零宽字符和所有非 ASCII 字符，控制字符保留
func StripToASCII(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			continue
		}
		if r <= 0x7F {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsASCII 空串视为 ASCII
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}

// ParseID 解析正整数 ID，非法返回 0
func ParseID(s string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
