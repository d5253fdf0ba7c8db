package definition

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/log"
	"github.com/hatlonely/dbstruct/log/logger"
	"github.com/hatlonely/dbstruct/ref"
	"github.com/hatlonely/dbstruct/schema"
)

type WatcherOptions struct {
	Path string `cfg:"path" validate:"required"`
	// 为空时使用 log.Default()
	Logger *ref.TypeOptions `cfg:"logger"`
}

// Watcher 监听定义文件，文件变化时重新构造 schema.Database
// 重新加载失败时保留上一次的结果
type Watcher struct {
	path     string
	logger   logger.Logger
	current  atomic.Pointer[schema.Database]
	watcher  *fsnotify.Watcher
	mu       sync.RWMutex
	onChange []func(db *schema.Database)
	once     sync.Once
}

func NewWatcherWithOptions(options *WatcherOptions) (*Watcher, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("path is required")
	}
	absPath, err := filepath.Abs(options.Path)
	if err != nil {
		return nil, errors.Wrap(err, "invalid path")
	}
	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:   absPath,
		logger: l.With("path", absPath),
	}
	db, err := w.load()
	if err != nil {
		return nil, err
	}
	w.current.Store(db)
	return w, nil
}

func (w *Watcher) load() (*schema.Database, error) {
	def, err := LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	return Build(def)
}

// Database 最近一次成功加载的结果
func (w *Watcher) Database() *schema.Database {
	return w.current.Load()
}

func (w *Watcher) OnChange(fn func(db *schema.Database)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch 开始监听，只有第一次调用生效
func (w *Watcher) Watch() error {
	var initErr error
	w.once.Do(func() {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			initErr = errors.Wrap(err, "failed to create file watcher")
			return
		}
		// 监听目录，编辑器保存时可能先删除再创建文件
		if err := watcher.Add(filepath.Dir(w.path)); err != nil {
			watcher.Close()
			initErr = errors.Wrap(err, "failed to add directory to watcher")
			return
		}

		w.mu.Lock()
		w.watcher = watcher
		w.mu.Unlock()

		go w.run(watcher)
	})
	return initErr
}

func (w *Watcher) run(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch definition failed", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	db, err := w.load()
	if err != nil {
		w.logger.Error("reload definition failed", "error", err)
		return
	}
	w.current.Store(db)
	w.logger.Info("definition reloaded", "tables", len(db.Tables()), "views", len(db.Views()))

	w.mu.RLock()
	handlers := make([]func(db *schema.Database), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.RUnlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(db)
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
