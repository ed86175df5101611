package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger 全局日志实例
	Logger *logrus.Logger
	// currentLogFile 当前日志文件路径
	currentLogFile string
	// fileWriter 当前文件输出（用于 Close）
	fileWriter *lumberjack.Logger
	// logMu 日志初始化锁
	logMu sync.Mutex
	// now 可在测试中替换
	now = time.Now
)

// sessionLayout 会话日志文件名中的时间格式: futurebot_20060102_150405.log
const sessionLayout = "20060102_150405"

// Config 日志配置
type Config struct {
	Level       string    // 日志级别: debug, info, warn, error
	OutputFile  string    // 日志文件路径（可选，为空则只输出到控制台）
	MaxSize     int       // 日志文件最大大小（MB）
	MaxBackups  int       // 保留的旧日志文件数量
	MaxAge      int       // 保留旧日志文件的天数
	Compress    bool      // 是否压缩旧日志文件
	PerSession  bool      // 是否在文件名中加入本次启动时间
	Console     io.Writer // 控制台输出（默认 os.Stdout）
	DisableFile bool      // 测试用：只输出到 Console
}

// SessionFileName returns basePath with the session start time spliced in
// before the extension: logs/futurebot.log -> logs/futurebot_20261016_093000.log
func SessionFileName(basePath string, start time.Time) string {
	dir := filepath.Dir(basePath)
	baseName := filepath.Base(basePath)
	ext := filepath.Ext(baseName)
	nameWithoutExt := baseName[:len(baseName)-len(ext)]
	if ext == "" {
		ext = ".log"
	}

	name := fmt.Sprintf("%s_%s%s", nameWithoutExt, start.Format(sessionLayout), ext)
	if dir == "." || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func newFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

// Init 初始化日志系统
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(newFormatter())

	console := config.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{console}

	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
	currentLogFile = ""

	if config.OutputFile != "" && !config.DisableFile {
		logFilePath := config.OutputFile
		if config.PerSession {
			logFilePath = SessionFileName(config.OutputFile, now())
		}

		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			return err
		}

		fileWriter = &lumberjack.Logger{
			Filename:   logFilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, fileWriter)
		currentLogFile = logFilePath
	}

	multiWriter := io.MultiWriter(writers...)
	logger.SetOutput(multiWriter)

	// 组件使用 logrus.WithField("component", ...) 创建的 logger 也需要写入同一输出
	logrus.SetOutput(multiWriter)
	logrus.SetLevel(level)
	logrus.SetFormatter(newFormatter())

	Logger = logger
	return nil
}

// InitDefault 使用默认配置初始化日志系统
func InitDefault() error {
	return Init(Config{
		Level:      "info",
		OutputFile: "logs/futurebot.log",
		MaxSize:    100, // 100MB
		MaxBackups: 3,
		MaxAge:     7, // 7天
		PerSession: true,
	})
}

// SetConsole 替换控制台输出，保留文件输出（TUI 运行期间传 io.Discard）
func SetConsole(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	if w == nil {
		w = io.Discard
	}
	writers := []io.Writer{w}
	if fileWriter != nil {
		writers = append(writers, fileWriter)
	}
	out := io.MultiWriter(writers...)
	if Logger != nil {
		Logger.SetOutput(out)
	}
	logrus.SetOutput(out)
}

// Close flushes and closes the file output, if any.
func Close() error {
	logMu.Lock()
	defer logMu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// std 返回全局 Logger；Init 之前回退到 logrus 默认实例
func std() *logrus.Logger {
	if Logger != nil {
		return Logger
	}
	return logrus.StandardLogger()
}

// Debugf 记录格式化的 DEBUG 级别日志
func Debugf(format string, args ...interface{}) {
	std().Debugf(format, args...)
}

// Infof 记录格式化的 INFO 级别日志
func Infof(format string, args ...interface{}) {
	std().Infof(format, args...)
}

// Warnf 记录格式化的 WARN 级别日志
func Warnf(format string, args ...interface{}) {
	std().Warnf(format, args...)
}

// Errorf 记录格式化的 ERROR 级别日志
func Errorf(format string, args ...interface{}) {
	std().Errorf(format, args...)
}

// GetCurrentLogFile 获取当前日志文件路径
func GetCurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogFile
}
