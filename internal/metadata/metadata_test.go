// XML附属文档解析的单元测试
package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseValidXML 测试合法XML解析为键值结构
func TestParseValidXML(t *testing.T) {
	raw := []byte(`<document><title>年度报告</title><author>张三</author><year>2024</year></document>`)

	result := Parse(raw)
	require.False(t, result.Ignored)
	require.Contains(t, result.Metadata, "document")

	doc, ok := result.Metadata["document"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "年度报告", doc["title"])
	assert.Equal(t, "张三", doc["author"])
}

// TestParseMalformedXML 测试格式非法的文档被忽略而非报错
func TestParseMalformedXML(t *testing.T) {
	result := Parse([]byte(`<document><title>unclosed`))
	assert.True(t, result.Ignored)
	assert.NotEmpty(t, result.Reason)
	assert.Nil(t, result.Metadata)
}

// TestParseEmptyDocument 测试空文档被忽略
func TestParseEmptyDocument(t *testing.T) {
	result := Parse(nil)
	assert.True(t, result.Ignored)
	assert.Equal(t, "empty document", result.Reason)
}

// TestParseNestedAttributes 测试带属性和嵌套结构的文档
func TestParseNestedAttributes(t *testing.T) {
	raw := []byte(`<report version="2"><sections><section>intro</section><section>body</section></sections></report>`)

	result := Parse(raw)
	require.False(t, result.Ignored)
	assert.Contains(t, result.Metadata, "report")
}
