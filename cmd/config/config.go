package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LoadFile parse the config from the file of the path. Files ending in
// .yaml or .yml are read as yaml, everything else as toml.
func LoadFile(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAMLReader(file, v)
	}
	return LoadReader(file, v)
}

// LoadString parse the config from the string
func LoadString(data string, v interface{}) error {
	return LoadReader(bytes.NewReader([]byte(data)), v)
}

// LoadReader parse the toml config from the reader
func LoadReader(r io.Reader, v interface{}) error {
	dec := toml.NewDecoder(r)
	md, err := dec.Decode(v)
	if err != nil {
		return errors.WithStack(err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown config key %s", undecoded[0])
	}
	return nil
}

// LoadYAMLReader parse the yaml config from the reader
func LoadYAMLReader(r io.Reader, v interface{}) error {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(v); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
