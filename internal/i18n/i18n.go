package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleEN = "en"
	LocaleVI = "vi"
)

const defaultLocale = LocaleEN

// ResolveLocale 从请求解析语言偏好
// 优先级: query 参数 lang > Accept-Language 头 > 默认语言
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return defaultLocale
	}
	if lang := normalize(c.Query("lang")); lang != "" {
		return lang
	}
	accept := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(accept, ",") {
		tag := part
		if idx := strings.Index(tag, ";"); idx >= 0 {
			tag = tag[:idx]
		}
		if lang := normalize(tag); lang != "" {
			return lang
		}
	}
	return defaultLocale
}

func normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if idx := strings.Index(tag, "-"); idx >= 0 {
		tag = tag[:idx]
	}
	switch tag {
	case LocaleEN, LocaleVI:
		return tag
	}
	return ""
}

// T 查找翻译文案，缺失时回退英文，再缺失时返回 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[defaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 查找带参数的翻译文案
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
