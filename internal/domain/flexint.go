package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt 宽容整数：JSON 数字、带引号的数字文本都能解码。
// 非数字文本、null 一律按 0 处理（与前端表单的宽容策略保持一致）。
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(CoerceInt(s))
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(int(n))
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// CoerceInt 文本转整数；失败时退回浮点截断，再失败按 0。
// Excel 导入等其它文本入口也走同一套宽容策略。
func CoerceInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return int(v)
	}
	return 0
}
