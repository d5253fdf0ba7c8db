package cfg

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Format 配置文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
	FormatINI  Format = "ini"
)

// FormatOf 根据扩展名判断格式
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".ini", ".conf", ".cfg":
		return FormatINI, nil
	}
	return "", errors.Errorf("unsupported config file extension %q", filepath.Ext(path))
}

// Decode 把原始数据解码为 Node
func Decode(data []byte, format Format) (*Node, error) {
	var out any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, errors.Wrap(err, "yaml.Unmarshal failed")
		}
	case FormatTOML:
		m := map[string]any{}
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
			return nil, errors.Wrap(err, "toml.Decode failed")
		}
		out = m
	case FormatJSON:
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, errors.Wrap(err, "json.Unmarshal failed")
		}
	case FormatINI:
		m, err := decodeINI(data)
		if err != nil {
			return nil, err
		}
		out = m
	default:
		return nil, errors.Errorf("unsupported format %q", format)
	}
	return NewNode(out), nil
}

// decodeINI 默认 section 的键放在顶层，其余 section 作为子 map
// 带点号的 section 名（如 [pool.redis]）会展开成多级
func decodeINI(data []byte) (map[string]any, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         true,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.Load failed")
	}

	result := map[string]any{}
	for _, section := range file.Sections() {
		target := result
		if section.Name() != ini.DefaultSection {
			for _, part := range strings.Split(section.Name(), ".") {
				sub, ok := target[part].(map[string]any)
				if !ok {
					sub = map[string]any{}
					target[part] = sub
				}
				target = sub
			}
		}
		for _, key := range section.Keys() {
			target[key.Name()] = iniValue(key.Value())
		}
	}
	return result, nil
}

func iniValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Unmarshal 解码数据并写入 object，随后填充默认值并校验
func Unmarshal(data []byte, format Format, object any) error {
	node, err := Decode(data, format)
	if err != nil {
		return err
	}
	return Bind(node, object)
}

// Bind 把 Node 写入 object，随后填充默认值并校验
func Bind(node *Node, object any) error {
	if err := node.ConvertTo(object); err != nil {
		return errors.WithMessage(err, "convert config failed")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if err := Validate(object); err != nil {
		return errors.Wrap(err, "validate config failed")
	}
	return nil
}

// LoadFile 按扩展名读取配置文件
func LoadFile(path string, object any) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read file %s failed", path)
	}
	return errors.WithMessagef(Unmarshal(data, format, object), "load %s failed", path)
}
