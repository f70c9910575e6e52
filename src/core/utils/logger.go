package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ip-risk-server-go/src/configs"

	"github.com/sirupsen/logrus"
)

// LogLevel 日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Logger 日志记录器，控制台输出文本格式，日志文件输出JSON格式
type Logger struct {
	console *logrus.Logger
	file    *logrus.Logger
	logFile *os.File
}

// NewLogger 创建新的日志记录器
func NewLogger(config *configs.Config) (*Logger, error) {
	// 确保日志目录存在
	if err := os.MkdirAll(config.Log.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %v", err)
	}

	// 打开或创建日志文件
	logPath := filepath.Join(config.Log.LogDir, config.Log.LogFile)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %v", err)
	}

	l := newLogger(config.Log.LogLevel, os.Stdout, file)
	l.logFile = file
	if strings.EqualFold(config.Log.LogFormat, "json") {
		l.console.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}
	return l, nil
}

// NewWriterLogger 创建只写入指定writer的日志记录器，测试和命令行工具使用
func NewWriterLogger(level string, w io.Writer) *Logger {
	return newLogger(level, w, nil)
}

func newLogger(levelStr string, console io.Writer, file io.Writer) *Logger {
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = logrus.InfoLevel // 默认级别
	}

	l := &Logger{console: logrus.New()}
	l.console.SetOutput(console)
	l.console.SetLevel(level)
	l.console.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if file != nil {
		l.file = logrus.New()
		l.file.SetOutput(file)
		l.file.SetLevel(level)
		l.file.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}
	return l
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// log 通用日志记录函数
// fields 为 map 时作为结构化字段；否则当 msg 含格式化占位符时作为格式化参数
func (l *Logger) log(level LogLevel, tag string, msg string, fields ...interface{}) {
	data := logrus.Fields{}
	if tag != "" {
		data["tag"] = tag
	}

	if len(fields) > 0 {
		switch f := fields[0].(type) {
		case map[string]interface{}:
			for k, v := range f {
				data[k] = v
			}
		default:
			if strings.Contains(msg, "%") {
				msg = fmt.Sprintf(msg, fields...)
			} else {
				data["fields"] = fmt.Sprint(fields...)
			}
		}
	}

	for _, out := range []*logrus.Logger{l.console, l.file} {
		if out == nil {
			continue
		}
		entry := out.WithFields(data)
		switch level {
		case DebugLevel:
			entry.Debug(msg)
		case InfoLevel:
			entry.Info(msg)
		case WarnLevel:
			entry.Warn(msg)
		default:
			entry.Error(msg)
		}
	}
}

// Debug 记录调试级别日志
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.log(DebugLevel, "", msg, fields...)
}

// Info 记录信息级别日志
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, "", msg, fields...)
}

// Warn 记录警告级别日志
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, "", msg, fields...)
}

// Error 记录错误级别日志
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, "", msg, fields...)
}

// FormatInfo 格式化记录信息级别日志
func (l *Logger) FormatInfo(format string, args ...interface{}) {
	l.log(InfoLevel, "", fmt.Sprintf(format, args...))
}

// TaggedLogger 带标签的日志记录器
type TaggedLogger struct {
	*Logger
	tag string
}

// WithTag 创建带标签的日志记录器
func (l *Logger) WithTag(tag string) *TaggedLogger {
	return &TaggedLogger{
		Logger: l,
		tag:    tag,
	}
}

// Debug 记录带标签的调试级别日志
func (l *TaggedLogger) Debug(msg string, fields ...interface{}) {
	l.log(DebugLevel, l.tag, msg, fields...)
}

// Info 记录带标签的信息级别日志
func (l *TaggedLogger) Info(msg string, fields ...interface{}) {
	l.log(InfoLevel, l.tag, msg, fields...)
}

// Warn 记录带标签的警告级别日志
func (l *TaggedLogger) Warn(msg string, fields ...interface{}) {
	l.log(WarnLevel, l.tag, msg, fields...)
}

// Error 记录带标签的错误级别日志
func (l *TaggedLogger) Error(msg string, fields ...interface{}) {
	l.log(ErrorLevel, l.tag, msg, fields...)
}
