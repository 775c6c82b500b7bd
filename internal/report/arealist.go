package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// areaFile is the object form of an area list: {"areas": [...]}.
type areaFile struct {
	Areas []any `json:"areas" yaml:"areas"`
}

// LoadAreaList reads a list of echo areas. Supported formats:
//
//	.txt/.lst    one area per line, blank and # lines ignored
//	.json        ["AREA1", "AREA2"] or {"areas": [...]}
//	.yaml/.yml   a sequence or a mapping with an areas key
//
// Content starting with [ or { is read as JSON whatever the extension.
// Non-string entries are skipped. An empty path yields no areas.
func LoadAreaList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read area list: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	trimmed := bytes.TrimSpace(data)
	switch {
	case ext == ".json" || bytes.HasPrefix(trimmed, []byte("[")) || bytes.HasPrefix(trimmed, []byte("{")):
		return decodeAreaList(path, data, json.Unmarshal)
	case ext == ".yaml" || ext == ".yml":
		return decodeAreaList(path, data, yaml.Unmarshal)
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

func decodeAreaList(path string, data []byte, unmarshal func([]byte, any) error) ([]string, error) {
	var list []any
	if err := unmarshal(data, &list); err != nil {
		var obj areaFile
		if err2 := unmarshal(data, &obj); err2 != nil || obj.Areas == nil {
			return nil, fmt.Errorf("report: area list %s must be a list or an object with an \"areas\" list", path)
		}
		list = obj.Areas
	}

	var out []string
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
