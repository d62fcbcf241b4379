// Package database 定义JSON列的序列化辅助类型
package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList 字符串列表，以JSON格式持久化
// 用于文件标签、用户角色等集合字段
type StringList []string

// Value 实现driver.Valuer接口
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现sql.Scanner接口
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}

	return json.Unmarshal(data, l)
}

// Contains 判断列表中是否包含指定元素
func (l StringList) Contains(item string) bool {
	for _, v := range l {
		if v == item {
			return true
		}
	}
	return false
}

// JSONMap 开放式键值映射，以JSON格式持久化
// 用于自定义元数据、XML解析结果和租户配置等字段
type JSONMap map[string]interface{}

// Value 实现driver.Valuer接口
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现sql.Scanner接口
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}

	return json.Unmarshal(data, m)
}
