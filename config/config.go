// Package config handles gcvm.toml configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/flswld/gcvm/logger"
	"github.com/flswld/gcvm/mem"
	"github.com/flswld/gcvm/vm"
)

const (
	AllocatorGo     = "go"
	AllocatorStatic = "static"

	defaultStaticSize = 64 * mem.MB
)

type Config struct {
	VM        vm.Config       `toml:"vm"`
	Allocator AllocatorConfig `toml:"allocator"`
	Log       LogConfig       `toml:"log"`
}

type AllocatorConfig struct {
	Kind       string `toml:"kind"`        // go或static
	StaticSize uint64 `toml:"static_size"` // static分配器的内存大小
	Track      bool   `toml:"track"`       // 包一层泄漏检测
}

type LogConfig struct {
	Level        string `toml:"level"`         // 日志级别
	TrackLine    bool   `toml:"track_line"`    // 记录调用位置
	TrackThread  bool   `toml:"track_thread"`  // 记录协程和线程id
	EnableFile   bool   `toml:"enable_file"`   // 写日志文件
	FileDir      string `toml:"file_dir"`      // 日志文件目录
	FileMaxSize  int64  `toml:"file_max_size"` // 日志文件轮转大小
	DisableColor bool   `toml:"disable_color"` // 关闭颜色
}

func Default() *Config {
	return &Config{
		VM: *vm.DefaultConfig(),
		Allocator: AllocatorConfig{
			Kind:       AllocatorGo,
			StaticSize: defaultStaticSize,
		},
		Log: LogConfig{
			Level:     "INFO",
			TrackLine: true,
		},
	}
}

// Load 读取toml配置文件 缺省字段使用默认值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data string) (*Config, error) {
	cfg := Default()
	meta, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.VM.StackMax < 0 {
		return fmt.Errorf("vm.stack_max must not be negative, got %d", c.VM.StackMax)
	}
	if _, ok := logger.LookupLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	switch c.Allocator.Kind {
	case AllocatorGo:
	case AllocatorStatic:
		if c.Allocator.StaticSize < mem.KB {
			return fmt.Errorf("allocator.static_size too small: %d", c.Allocator.StaticSize)
		}
	default:
		return fmt.Errorf("unknown allocator.kind %q", c.Allocator.Kind)
	}
	return nil
}

// NewAllocator 按配置创建分配器 Track为true时返回的分配器是*mem.TrackingAllocator
func (c *Config) NewAllocator() (mem.Allocator, error) {
	var allocator mem.Allocator
	switch c.Allocator.Kind {
	case AllocatorStatic:
		region := mem.NewGoAllocator().Malloc(c.Allocator.StaticSize)
		staticHeap := mem.NewStaticHeap(region, c.Allocator.StaticSize)
		if staticHeap == nil {
			return nil, fmt.Errorf("create static heap of %d bytes failed", c.Allocator.StaticSize)
		}
		allocator = staticHeap
	default:
		allocator = mem.NewGoAllocator()
	}
	if c.Allocator.Track {
		allocator = mem.NewTrackingAllocator(allocator)
	}
	return allocator, nil
}

func (c *Config) LoggerConfig(appName string) *logger.Config {
	return &logger.Config{
		AppName:      appName,
		Level:        logger.ParseLevel(c.Log.Level),
		TrackLine:    c.Log.TrackLine,
		TrackThread:  c.Log.TrackThread,
		EnableFile:   c.Log.EnableFile,
		FileDir:      c.Log.FileDir,
		FileMaxSize:  c.Log.FileMaxSize,
		DisableColor: c.Log.DisableColor,
	}
}
