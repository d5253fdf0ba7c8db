package writer

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/dbstruct/ref"
)

// MultiWriterOptions 多输出配置
type MultiWriterOptions struct {
	Writers []ref.TypeOptions `cfg:"writers" validate:"min=1"`
}

// MultiWriter 把同一条日志写到多个输出器
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriterWithOptions(options *MultiWriterOptions) (*MultiWriter, error) {
	if options == nil || len(options.Writers) == 0 {
		return nil, errors.New("at least one writer is required")
	}

	writers := make([]Writer, 0, len(options.Writers))
	for i := range options.Writers {
		obj, err := ref.NewWithTypeOptions(&options.Writers[i])
		if err != nil {
			closeAll(writers)
			return nil, errors.WithMessagef(err, "create writer %d failed", i)
		}
		w, ok := obj.(Writer)
		if !ok {
			closeAll(writers)
			return nil, errors.Errorf("writer %d (%T) does not implement Writer interface", i, obj)
		}
		writers = append(writers, w)
	}

	return &MultiWriter{writers: writers}, nil
}

// NewMultiWriter 从已有的输出器构造
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(p []byte) (int, error) {
	for i, w := range m.writers {
		if _, err := w.Write(p); err != nil {
			return 0, errors.WithMessagef(err, "writer %d failed", i)
		}
	}
	return len(p), nil
}

func (m *MultiWriter) Close() error {
	return closeAll(m.writers)
}

func closeAll(writers []Writer) error {
	var lastErr error
	for i, w := range writers {
		if err := w.Close(); err != nil {
			lastErr = errors.WithMessagef(err, "close writer %d failed", i)
		}
	}
	return lastErr
}
