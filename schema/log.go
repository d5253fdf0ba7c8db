package schema

import (
	"sync/atomic"

	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/log/logger"
)

var sink atomic.Pointer[logger.Logger]

// SetLogger 设置格式串诊断信息的输出，nil 表示丢弃
func SetLogger(l logger.Logger) {
	if l == nil {
		l = logger.NewDiscard()
	}
	sink.Store(&l)
}

func diagnostics() logger.Logger {
	if l := sink.Load(); l != nil {
		return *l
	}
	return log.Default().WithGroup("schema")
}
