package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Filenames are the release files looked up in the project root, in order.
var Filenames = []string{"release.json", "release.yaml", "release.yml"}

// InvalidSchemaError represents a release file that does not
// follow the schema.
type InvalidSchemaError struct {
	File   string
	Result *gojsonschema.Result
}

// Error is used to satisfy the error interface.
func (i InvalidSchemaError) Error() string {
	msgs := make([]string, 0, len(i.Result.Errors()))
	for _, resErr := range i.Result.Errors() {
		msgs = append(msgs, resErr.String())
	}
	return i.File + ": invalid release file: " + strings.Join(msgs, "; ")
}

// Load reads the release file at path, or the first of Filenames found in
// root when path is empty. Without a release file the defaults are used.
// Environment overrides are applied last.
func Load(ctx context.Context, root, path string) (*Config, error) {
	if path == "" {
		for _, name := range Filenames {
			candidate := filepath.Join(root, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	c := Default()
	if path != "" {
		util.Debugf(ctx, "reading release file %s\n", path)
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", path)
		}
		c, err = Parse(path, bytes)
		if err != nil {
			return nil, err
		}
	} else {
		util.Debugf(ctx, "no release file in %s, using defaults\n", root)
	}

	applyEnv(c)
	return c, nil
}

// Parse decodes a release file on top of the defaults. Files ending in
// .yaml or .yml are YAML, anything else is JSON.
func Parse(file string, bytes []byte) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(file))
	if ext == ".yaml" || ext == ".yml" {
		var doc interface{}
		if err := yaml.Unmarshal(bytes, &doc); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", file)
		}
		if doc == nil {
			doc = map[string]interface{}{}
		}
		var err error
		if bytes, err = json.Marshal(doc); err != nil {
			return nil, errors.Wrapf(err, "failed to convert %s", file)
		}
	}

	res, err := Schema.Validate(gojsonschema.NewBytesLoader(bytes))
	if err != nil {
		// invalid JSON
		return nil, errors.Wrapf(err, "failed to parse %s", file)
	}
	if !res.Valid() {
		return nil, InvalidSchemaError{File: file, Result: res}
	}

	c := Default()
	if err := json.Unmarshal(bytes, c); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", file)
	}

	// Setup executables only exist on Windows; elsewhere default to a tarball.
	var probe struct {
		Installer struct {
			Kind *string `json:"kind"`
		} `json:"installer"`
	}
	if err := json.Unmarshal(bytes, &probe); err == nil && probe.Installer.Kind == nil && !c.IsWindows() {
		c.Installer.Kind = InstallerTarball
	}
	return c, nil
}

func applyEnv(c *Config) {
	c.Freeze.Command = util.GetEnvOr("PYINSTALLER", c.Freeze.Command)
	c.Installer.Compiler = util.GetEnvOr("ISCC", c.Installer.Compiler)
	c.Sandbox.Image = util.GetEnvOr("DOCKER_IMAGE", c.Sandbox.Image)
}
