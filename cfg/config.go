// Package cfg 从 json yaml toml ini 文件加载配置到 Options 结构体
//
// 加载顺序为 def 标签默认值、文件内容、validate 标签校验，文件中的键由 cfg 标签指定
package cfg

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/hatlonely/rdbx/cfg/decoder"
	"github.com/hatlonely/rdbx/cfg/validator"
	"github.com/hatlonely/rdbx/log"
	"github.com/hatlonely/rdbx/log/logger"
)

// Config 配置文件
//
// Sub 返回的子配置与根配置共享数据，文件变更后读到的是新内容
type Config struct {
	root *Config
	key  string

	// 只有根配置使用以下字段
	path     string
	decoder  decoder.Decoder
	logger   logger.Logger
	mu       sync.RWMutex
	data     map[string]any
	handlers []func(*Config) error
	watcher  *fsnotify.Watcher
	watchMu  sync.Mutex
	closed   bool
}

// NewConfig 读取配置文件，格式由扩展名决定
func NewConfig(path string) (*Config, error) {
	dec, err := decoder.NewDecoderForPath(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid path %s", path)
	}
	c := &Config{path: abs, decoder: dec, logger: log.Default().WithGroup("cfg")}
	c.root = c

	data, err := c.load()
	if err != nil {
		return nil, err
	}
	c.data = data
	return c, nil
}

// NewConfigWithData 由已解码的数据创建配置，不关联文件
func NewConfigWithData(data map[string]any) *Config {
	c := &Config{data: data, logger: logger.Discard}
	c.root = c
	return c
}

// Load 读取配置文件到 object，object 必须是结构体指针
func Load(path string, object any) error {
	c, err := NewConfig(path)
	if err != nil {
		return err
	}
	return c.ConvertTo(object)
}

func (c *Config) load() (map[string]any, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s failed", c.path)
	}
	data, err := c.decoder.Decode(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode %s failed", c.path)
	}
	return data, nil
}

// Sub 子配置，key 以 . 分隔层级
func (c *Config) Sub(key string) *Config {
	if c.key != "" {
		key = c.key + "." + key
	}
	return &Config{root: c.root, key: key}
}

// Get 当前配置对应的原始数据，key 不存在时返回 nil
func (c *Config) Get() any {
	c.root.mu.RLock()
	defer c.root.mu.RUnlock()

	var cur any = c.root.data
	if c.key == "" {
		return cur
	}
	for _, part := range strings.Split(c.key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = m[part]; !ok {
			return nil
		}
	}
	return cur
}

// ConvertTo 依次设置默认值、用配置覆盖、校验
func (c *Config) ConvertTo(object any) error {
	if err := SetDefaults(object); err != nil {
		return err
	}
	if data := c.Get(); data != nil {
		if err := decode(data, object); err != nil {
			return errors.WithMessagef(err, "convert %q failed", c.key)
		}
	}
	return validator.ValidateStruct(object)
}

func decode(data any, object any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "cfg",
		Result:           object,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			defaultsHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Wrap(err, "create decoder failed")
	}
	return errors.Wrap(dec.Decode(data), "decode failed")
}

// defaultsHook 配置中出现的结构体在填充前先设置默认值，覆盖 nil 指针新分配的结构体
func defaultsHook(from reflect.Value, to reflect.Value) (any, error) {
	if to.Kind() == reflect.Struct && to.CanSet() && to.IsZero() {
		if err := setDefaults(to); err != nil {
			return nil, err
		}
	}
	return from.Interface(), nil
}

// OnChange 注册文件变更回调，回调在 Watch 启动的 goroutine 中执行
func (c *Config) OnChange(fn func(*Config) error) {
	root := c.root
	root.mu.Lock()
	defer root.mu.Unlock()
	sub := c
	root.handlers = append(root.handlers, func(*Config) error {
		return fn(sub)
	})
}

// Watch 监听配置文件所在目录，文件写入后重新加载并执行回调
//
// 解码失败时保留旧数据，不执行回调
func (c *Config) Watch() error {
	root := c.root
	if root.path == "" {
		return errors.New("config is not backed by a file")
	}

	root.watchMu.Lock()
	defer root.watchMu.Unlock()
	if root.closed {
		return errors.New("config is closed")
	}
	if root.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher failed")
	}
	// 监听目录以便感知编辑器的替换写入
	if err := watcher.Add(filepath.Dir(root.path)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "watch directory failed")
	}
	root.watcher = watcher

	go root.watch(watcher)
	return nil
}

func (c *Config) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != c.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			c.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("watch config failed", "path", c.path, "error", err)
		}
	}
}

func (c *Config) reload() {
	data, err := c.load()
	if err != nil {
		c.logger.Warn("reload config failed, keep previous", "path", c.path, "error", err)
		return
	}

	c.mu.Lock()
	c.data = data
	handlers := make([]func(*Config) error, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, handler := range handlers {
		if err := handler(c); err != nil {
			c.logger.Warn("config change handler failed", "path", c.path, "error", err)
		}
	}
}

// Close 停止监听
func (c *Config) Close() error {
	root := c.root
	root.watchMu.Lock()
	defer root.watchMu.Unlock()
	if root.closed {
		return nil
	}
	root.closed = true
	if root.watcher != nil {
		return errors.Wrap(root.watcher.Close(), "close watcher failed")
	}
	return nil
}
