package enzyme

import (
	"fmt"
)

// EncodingError 参数编码错误
//
// 参数形状不匹配或资产引用无法解析时立即抛出，错误信息点名出错的值；
// 不做部分编码，也不重试
type EncodingError struct {
	// Msg 错误说明
	Msg string
	// Value 出错的值
	Value interface{}
}

func (e *EncodingError) Error() string {
	if e.Value == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Value)
}

// newEncodingError 创建编码错误
func newEncodingError(msg string, value interface{}) *EncodingError {
	return &EncodingError{Msg: msg, Value: value}
}
