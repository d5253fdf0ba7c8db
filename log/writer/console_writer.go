package writer

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleWriterOptions 控制台输出配置
type ConsoleWriterOptions struct {
	// 是否按日志级别着色，终端不支持时自动关闭
	Color bool `cfg:"color"`
	// 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stdout" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	mu     sync.Mutex
	writer io.Writer
	color  bool
}

var levelColors = []struct {
	tokens [][]byte
	color  *color.Color
}{
	{tokens: [][]byte{[]byte("level=ERROR"), []byte(`"level":"ERROR"`)}, color: color.New(color.FgRed)},
	{tokens: [][]byte{[]byte("level=WARN"), []byte(`"level":"WARN"`)}, color: color.New(color.FgYellow)},
	{tokens: [][]byte{[]byte("level=DEBUG"), []byte(`"level":"DEBUG"`)}, color: color.New(color.FgHiBlack)},
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	if options == nil {
		options = &ConsoleWriterOptions{Target: "stdout"}
	}

	w := &ConsoleWriter{color: options.Color && !color.NoColor}
	switch options.Target {
	case "stderr":
		w.writer = os.Stderr
		if w.color {
			w.writer = color.Error
		}
	default:
		w.writer = os.Stdout
		if w.color {
			w.writer = color.Output
		}
	}
	return w, nil
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.color {
		return c.writer.Write(p)
	}
	for _, lc := range levelColors {
		for _, token := range lc.tokens {
			if bytes.Contains(p, token) {
				if _, err := lc.color.Fprint(c.writer, string(bytes.TrimRight(p, "\n"))+"\n"); err != nil {
					return 0, err
				}
				return len(p), nil
			}
		}
	}
	return c.writer.Write(p)
}

// Close 控制台不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}
