package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init 根据运行模式初始化全局日志器，debug 模式输出更易读
func Init(debug bool) {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar = l.Sugar()
}

// L 获取全局日志器，未显式初始化时退回开发配置
func L() *zap.SugaredLogger {
	once.Do(func() {
		if sugar == nil {
			l, _ := zap.NewDevelopment()
			sugar = l.Sugar()
		}
	})
	return sugar
}
