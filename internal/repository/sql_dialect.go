package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// likeOperator LIKE 操作符，postgres 下使用不区分大小写的 ILIKE。
func likeOperator(db *gorm.DB) string {
	switch dbDialectName(db) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// jsonArrayContainsConditions 构建 JSON 数组包含指定 ID 的 LIKE 条件。
// 数组存储格式为 [1,2,3]，按边界匹配避免误命中（如 1 命中 11）。
func jsonArrayContainsConditions(column string, id uint) (string, []interface{}) {
	exact := fmt.Sprintf("[%d]", id)
	prefix := fmt.Sprintf("[%d,%%", id)
	middle := fmt.Sprintf("%%,%d,%%", id)
	suffix := fmt.Sprintf("%%,%d]", id)
	condition := fmt.Sprintf(
		"(%s = ? OR %s LIKE ? OR %s LIKE ? OR %s LIKE ?)",
		column, column, column, column,
	)
	return condition, []interface{}{exact, prefix, middle, suffix}
}
