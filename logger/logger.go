package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DEBUG = iota
	INFO
	WARN
	ERROR
)

// ParseLevel 未知级别按DEBUG处理
func ParseLevel(level string) int {
	l, _ := LookupLevel(level)
	return l
}

// LookupLevel 不区分大小写 第二个返回值表示级别是否有效
func LookupLevel(level string) (int, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN":
		return WARN, true
	case "ERROR":
		return ERROR, true
	default:
		return DEBUG, false
	}
}

var levelMap = map[int][]byte{
	DEBUG: []byte("DEBUG"),
	INFO:  []byte("INFO"),
	WARN:  []byte("WARN"),
	ERROR: []byte("ERROR"),
}

var (
	leftBracket  = []byte("[")
	rightBracket = []byte("]")
	space        = []byte(" ")
	colon        = []byte(":")
	funcBracket  = []byte("()")
	lineFeed     = []byte("\n")
)

var (
	red     = []byte{27, 91, 51, 49, 109}
	green   = []byte{27, 91, 51, 50, 109}
	yellow  = []byte{27, 91, 51, 51, 109}
	blue    = []byte{27, 91, 51, 52, 109}
	magenta = []byte{27, 91, 51, 53, 109}
	cyan    = []byte{27, 91, 51, 54, 109}
	reset   = []byte{27, 91, 48, 109}
)

const (
	defaultFileMaxSize = 10485760
	logInfoChanSize    = 1000
	maxWriteCacheNum   = 1000
)

type Config struct {
	AppName      string    // 应用名 日志文件名前缀
	Level        int       // 日志级别
	TrackLine    bool      // 记录调用文件行号
	TrackThread  bool      // 记录协程id和线程id
	EnableFile   bool      // 写日志文件
	FileDir      string    // 日志文件目录
	FileMaxSize  int64     // 单个日志文件最大字节数 超过后轮转
	DisableColor bool      // 关闭颜色
	Output       io.Writer // 控制台输出 默认stderr
}

type Logger struct {
	config        *Config
	logFile       *os.File
	logInfoChan   chan *logInfo
	writeBuf      []byte
	writeCacheNum int
	closeChan     chan struct{}
}

type logInfo struct {
	time        time.Time
	level       int
	msg         *[]byte
	fileName    string
	funcName    string
	line        int
	goroutineId string
	threadId    string
}

var (
	logger     *Logger = nil
	loggerLock sync.RWMutex
)

func InitLogger(cfg *Config) {
	if cfg == nil {
		cfg = &Config{
			AppName:   "gcvm",
			Level:     DEBUG,
			TrackLine: true,
		}
	}
	if cfg.FileMaxSize == 0 {
		cfg.FileMaxSize = defaultFileMaxSize
	}
	if cfg.FileDir == "" {
		cfg.FileDir = "./log"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	l := &Logger{
		config:        cfg,
		logInfoChan:   make(chan *logInfo, logInfoChanSize),
		writeBuf:      make([]byte, 0),
		writeCacheNum: 0,
		closeChan:     make(chan struct{}),
	}
	loggerLock.Lock()
	old := logger
	logger = l
	loggerLock.Unlock()
	if old != nil {
		old.close()
	}
	go l.doLog()
}

// CloseLogger 输出所有缓存的日志后关闭 未初始化时什么都不做
func CloseLogger() {
	loggerLock.Lock()
	l := logger
	logger = nil
	loggerLock.Unlock()
	if l != nil {
		l.close()
	}
}

func (l *Logger) close() {
	l.closeChan <- struct{}{}
	<-l.closeChan
	if l.logFile != nil {
		_ = l.logFile.Close()
	}
}

func (l *Logger) doLog() {
	var logBuf bytes.Buffer
	timeBuf := make([]byte, 0, 64)
	for {
		select {
		case <-l.closeChan:
			for len(l.logInfoChan) != 0 {
				l.formatTo(&logBuf, timeBuf[0:0], <-l.logInfoChan)
			}
			l.flush()
			l.closeChan <- struct{}{}
			return
		case info := <-l.logInfoChan:
			l.formatTo(&logBuf, timeBuf[0:0], info)
		}
	}
}

func (l *Logger) formatTo(logBuf *bytes.Buffer, timeBuf []byte, info *logInfo) {
	color := !l.config.DisableColor
	if color {
		logBuf.Write(cyan)
	}
	logBuf.Write(leftBracket)
	logBuf.Write(info.time.AppendFormat(timeBuf, "2006-01-02 15:04:05.000"))
	logBuf.Write(rightBracket)
	if color {
		logBuf.Write(reset)
	}
	logBuf.Write(space)

	if color {
		switch info.level {
		case DEBUG:
			logBuf.Write(blue)
		case INFO:
			logBuf.Write(green)
		case WARN:
			logBuf.Write(yellow)
		case ERROR:
			logBuf.Write(red)
		}
	}
	logBuf.Write(leftBracket)
	logBuf.Write(levelMap[info.level])
	logBuf.Write(rightBracket)
	if color {
		logBuf.Write(reset)
	}
	logBuf.Write(space)

	if color && info.level == ERROR {
		logBuf.Write(red)
		logBuf.Write(*info.msg)
		logBuf.Write(reset)
	} else {
		logBuf.Write(*info.msg)
	}

	if l.config.TrackLine {
		logBuf.Write(space)
		if color {
			logBuf.Write(magenta)
		}
		logBuf.Write(leftBracket)
		logBuf.WriteString(info.fileName)
		logBuf.Write(colon)
		logBuf.WriteString(strconv.Itoa(info.line))
		logBuf.Write(space)
		logBuf.WriteString(info.funcName)
		logBuf.Write(funcBracket)
		if l.config.TrackThread {
			logBuf.Write(space)
			logBuf.WriteString("goroutine")
			logBuf.Write(colon)
			logBuf.WriteString(info.goroutineId)
			logBuf.Write(space)
			logBuf.WriteString("thread")
			logBuf.Write(colon)
			logBuf.WriteString(info.threadId)
		}
		logBuf.Write(rightBracket)
		if color {
			logBuf.Write(reset)
		}
	}

	logBuf.Write(lineFeed)

	l.writeBuf = append(l.writeBuf, logBuf.Bytes()...)
	l.writeCacheNum++
	putBuf(info.msg)
	logInfoPool.Put(info)
	logBuf.Reset()
	if len(l.logInfoChan) != 0 && l.writeCacheNum < maxWriteCacheNum {
		return
	}
	l.flush()
}

func (l *Logger) flush() {
	if len(l.writeBuf) == 0 {
		return
	}
	_, _ = l.config.Output.Write(l.writeBuf)
	if l.config.EnableFile {
		l.writeLogFile(l.writeBuf)
	}
	l.writeBuf = l.writeBuf[0:0]
	l.writeCacheNum = 0
}

func (l *Logger) logFileName() string {
	return filepath.Join(l.config.FileDir, l.config.AppName+".log")
}

func (l *Logger) openLogFile() bool {
	err := os.MkdirAll(l.config.FileDir, 0755)
	if err != nil {
		l.writeInternalError("create log dir error: %v", err)
		return false
	}
	file, err := os.OpenFile(l.logFileName(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.writeInternalError("open new log file error: %v", err)
		return false
	}
	l.logFile = file
	return true
}

func (l *Logger) writeLogFile(logData []byte) {
	if l.logFile == nil && !l.openLogFile() {
		return
	}
	fileStat, err := l.logFile.Stat()
	if err != nil {
		l.writeInternalError("get log file stat error: %v", err)
		return
	}
	if fileStat.Size() >= l.config.FileMaxSize {
		err = l.logFile.Close()
		l.logFile = nil
		if err != nil {
			l.writeInternalError("close old log file error: %v", err)
			return
		}
		timeStr := time.Now().Format("20060102150405")
		err = os.Rename(l.logFileName(), l.logFileName()+"."+timeStr)
		if err != nil {
			l.writeInternalError("rename old log file error: %v", err)
			return
		}
		if !l.openLogFile() {
			return
		}
	}
	_, err = l.logFile.Write(logData)
	if err != nil {
		l.writeInternalError("write log file error: %v", err)
	}
}

func (l *Logger) writeInternalError(format string, err error) {
	_, _ = fmt.Fprintf(l.config.Output, string(red)+format+"\n"+string(reset), err)
}

var bufPool = sync.Pool{New: func() any { return new([]byte) }}

func getBuf() *[]byte {
	p := bufPool.Get().(*[]byte)
	*p = (*p)[0:0]
	return p
}

func putBuf(p *[]byte) {
	if cap(*p) > 64<<10 {
		*p = nil
	}
	bufPool.Put(p)
}

var logInfoPool = sync.Pool{New: func() any { return new(logInfo) }}

func formatLog(level int, msg string, param []any) {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	l := logger
	if l == nil || l.config.Level > level {
		return
	}
	info := logInfoPool.Get().(*logInfo)
	info.time = time.Now()
	info.level = level
	buf := getBuf()
	*buf = fmt.Appendf(*buf, msg, param...)
	info.msg = buf
	if l.config.TrackLine {
		info.fileName, info.line, info.funcName = getLineFunc()
	}
	if l.config.TrackThread {
		info.goroutineId = getGoroutineId()
		info.threadId = getThreadId()
	}
	l.logInfoChan <- info
}

func Debug(msg string, param ...any) {
	formatLog(DEBUG, msg, param)
}

func Info(msg string, param ...any) {
	formatLog(INFO, msg, param)
}

func Warn(msg string, param ...any) {
	formatLog(WARN, msg, param)
}

func Error(msg string, param ...any) {
	formatLog(ERROR, msg, param)
}

// IsEnabled 判断某级别日志是否会输出 用于跳过昂贵的参数计算
func IsEnabled(level int) bool {
	loggerLock.RLock()
	defer loggerLock.RUnlock()
	return logger != nil && logger.config.Level <= level
}

func getGoroutineId() (goroutineId string) {
	buf := make([]byte, 32)
	runtime.Stack(buf, false)
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	buf = buf[:bytes.IndexByte(buf, ' ')]
	goroutineId = string(buf)
	return goroutineId
}

func getLineFunc() (fileName string, line int, funcName string) {
	pc, file, line, ok := runtime.Caller(3)
	if !ok {
		return "???", -1, "???"
	}
	fileName = path.Base(file)
	funcName = runtime.FuncForPC(pc).Name()
	split := strings.Split(funcName, ".")
	if len(split) != 0 {
		funcName = split[len(split)-1]
	}
	return fileName, line, funcName
}

func Stack() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}
