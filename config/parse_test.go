package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		file   string
		input  string
		assert func(t *testing.T, c *Config, err error)
	}{
		{
			name:  "empty object keeps defaults",
			file:  "release.json",
			input: `{}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, Default(), c)
				assert.Equal(t, "compressor.exe", c.ExeName())
			},
		},
		{
			name:  "json overrides",
			file:  "release.json",
			input: `{"name": "squeeze", "version": "2.1.0", "tools": ["cjpeg.exe"]}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "squeeze", c.Name)
				assert.Equal(t, "2.1.0", c.Version)
				assert.Equal(t, []string{"cjpeg.exe"}, c.Tools)
				assert.Equal(t, DefaultExtensions, c.Extensions)
			},
		},
		{
			name: "yaml",
			file: "release.yaml",
			input: `
name: compressor
version: "1.4.0"
installer:
  compiler: C:\Tools\ISCC.exe
publish:
  githubRepo: acme/compressor
`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "1.4.0", c.Version)
				assert.Equal(t, `C:\Tools\ISCC.exe`, c.Installer.Compiler)
				assert.Equal(t, InstallerInno, c.Installer.Kind)
				assert.Equal(t, "acme/compressor", c.Publish.GitHubRepo)
			},
		},
		{
			name:  "non-windows target defaults to tarball",
			file:  "release.json",
			input: `{"targetOS": "linux"}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, InstallerTarball, c.Installer.Kind)
				assert.Equal(t, "compressor", c.ExeName())
				assert.Equal(t, runtime.GOARCH, c.TargetArch)
			},
		},
		{
			name:  "target arch",
			file:  "release.json",
			input: `{"targetOS": "linux", "targetArch": "arm64"}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "arm64", c.TargetArch)
			},
		},
		{
			name:  "bad target arch",
			file:  "release.json",
			input: `{"targetArch": "x86-64"}`,
			assert: func(t *testing.T, c *Config, err error) {
				assert.IsType(t, InvalidSchemaError{}, err)
			},
		},
		{
			name:  "explicit kind wins on non-windows target",
			file:  "release.json",
			input: `{"targetOS": "linux", "installer": {"kind": "inno"}}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, InstallerInno, c.Installer.Kind)
			},
		},
		{
			name:  "unknown field",
			file:  "release.json",
			input: `{"nmae": "typo"}`,
			assert: func(t *testing.T, c *Config, err error) {
				require.Error(t, err)
				_, ok := err.(InvalidSchemaError)
				assert.True(t, ok)
				assert.Contains(t, err.Error(), "nmae")
			},
		},
		{
			name:  "bad extension",
			file:  "release.json",
			input: `{"extensions": ["jpg"]}`,
			assert: func(t *testing.T, c *Config, err error) {
				assert.IsType(t, InvalidSchemaError{}, err)
			},
		},
		{
			name:  "invalid json",
			file:  "release.json",
			input: `{ "name":, }`,
			assert: func(t *testing.T, c *Config, err error) {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to parse release.json")
			},
		},
	}

	for _, tc := range cases {
		tc := tc // capture range variable

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c, err := Parse(tc.file, []byte(tc.input))
			tc.assert(t, c, err)
		})
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()

	c, err := Load(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, "compressor", c.Name)

	require.NoError(t, os.WriteFile(filepath.Join(root, "release.yml"), []byte("version: 3.0.0\n"), 0644))
	c, err = Load(context.Background(), root, "")
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", c.Version)

	_, err = Load(context.Background(), root, filepath.Join(root, "missing.json"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	os.Setenv("ISCC", "/opt/iscc")
	defer os.Unsetenv("ISCC")

	c, err := Load(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "/opt/iscc", c.Installer.Compiler)
}
