package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// requestFile is the on-disk shape of a request description.
type requestFile struct {
	Method     string            `json:"method" yaml:"method"`
	Endpoint   string            `json:"endpoint" yaml:"endpoint"`
	Params     map[string]string `json:"params" yaml:"params"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	Body       any               `json:"body" yaml:"body"`
	Authorized *bool             `json:"authorized" yaml:"authorized"`
}

type unmarshalFn func([]byte, any) error

// LoadFile reads a request description from a YAML or JSON file.
func LoadFile(path string) (*Request, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("request file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	rf, err := parseRequestFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return rf.build()
}

func parseRequestFile(data []byte, ext string) (requestFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var rf requestFile
		if err := d.fn(data, &rf); err == nil {
			return rf, nil
		}
	}

	return requestFile{}, errors.New("request file format not recognized (expected YAML or JSON)")
}

func (s requestFile) build() (*Request, error) {
	opts := []Option{WithParams(s.Params)}
	if m := strings.TrimSpace(s.Method); m != "" {
		opts = append(opts, WithMethod(m))
	}
	for k, v := range s.Headers {
		opts = append(opts, WithHeader(k, v))
	}
	if s.Body != nil {
		opts = append(opts, WithJSONBody(s.Body))
	}
	if s.Authorized != nil && !*s.Authorized {
		opts = append(opts, Unauthorized())
	}

	req, err := New(s.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("request file: %w", err)
	}
	return req, nil
}
