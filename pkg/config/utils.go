package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// initConfig decodes a configuration file chosen by its suffix.
//
// Parameters:
// - file: *os.File - the file to read the configuration from.
// - target: any - a pointer to the configuration struct.
//
// Returns:
// - error: an error if the configuration file format is unknown or if there was an error decoding the file.
func initConfig(file *os.File, target any) error {
	return decode(file.Name(), file, target)
}

func decode(name string, r io.Reader, target any) error {
	if strings.HasSuffix(name, ".toml") {
		_, err := toml.NewDecoder(r).Decode(target)
		return err
	}
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return yaml.NewDecoder(r).Decode(target)
	}
	if strings.HasSuffix(name, ".json") {
		return json.NewDecoder(r).Decode(target)
	}
	return fmt.Errorf("unknown config format type: %s. Use .toml, .yaml or .json suffix in filename", name)
}

func loadFile(path string, target any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return initConfig(file, target)
}
