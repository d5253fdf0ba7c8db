package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileWriterOptions 文件输出配置
type FileWriterOptions struct {
	Path string `cfg:"path" validate:"required"`
	// 单个文件最大大小（MB），0 表示不轮转
	MaxSize int `cfg:"maxSize"`
	// 保留的历史文件数量，0 表示只保留一个
	MaxBackups int `cfg:"maxBackups"`
}

// FileWriter 文件输出器，超过 MaxSize 时按 path.1 path.2 ... 轮转
type FileWriter struct {
	options *FileWriterOptions
	file    *os.File
	size    int64
	mu      sync.Mutex
}

func NewFileWriterWithOptions(options *FileWriterOptions) (*FileWriter, error) {
	if options == nil || options.Path == "" {
		return nil, errors.New("file path is required")
	}

	dir := filepath.Dir(options.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create directory %s failed", dir)
	}

	w := &FileWriter{options: options}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (f *FileWriter) open() error {
	file, err := os.OpenFile(f.options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.Wrapf(err, "open file %s failed", f.options.Path)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.Wrapf(err, "stat file %s failed", f.options.Path)
	}
	f.file = file
	f.size = info.Size()
	return nil
}

func (f *FileWriter) rotate() error {
	if err := f.file.Close(); err != nil {
		return errors.Wrap(err, "close file failed")
	}
	f.file = nil

	backups := f.options.MaxBackups
	if backups < 1 {
		backups = 1
	}
	_ = os.Remove(fmt.Sprintf("%s.%d", f.options.Path, backups))
	for i := backups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", f.options.Path, i), fmt.Sprintf("%s.%d", f.options.Path, i+1))
	}
	if err := os.Rename(f.options.Path, f.options.Path+".1"); err != nil {
		return errors.Wrap(err, "rename file failed")
	}
	return f.open()
}

func (f *FileWriter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return 0, errors.New("file is closed")
	}

	limit := int64(f.options.MaxSize) * 1024 * 1024
	if limit > 0 && f.size > 0 && f.size+int64(len(p)) > limit {
		if err := f.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
