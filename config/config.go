package config

import (
	"runtime"
	"strings"
)

const (
	// InstallerInno compiles an Inno Setup script into a Windows setup executable.
	InstallerInno = "inno"
	// InstallerTarball packages the folder distribution as a .tar.gz.
	InstallerTarball = "tarball"
)

// DefaultTools are the auxiliary binaries the compressor shells out to.
var DefaultTools = []string{"cjpeg.exe", "cwebp.exe", "pngquant.exe", "zopflipng.exe"}

// DefaultExtensions are the file types registered for "Open With".
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Freeze configures the tool bundling the entry point into an executable.
type Freeze struct {
	Command   string   `json:"command"`
	ExtraArgs []string `json:"extraArgs,omitempty"`
}

// Installer configures the packaging step consuming the folder distribution.
type Installer struct {
	Kind     string `json:"kind"`
	Compiler string `json:"compiler,omitempty"`
	AppID    string `json:"appId"`
}

// Sandbox configures running the freeze tool inside a container.
type Sandbox struct {
	Image string `json:"image,omitempty"`
}

// Publish configures where released artifacts go once collected.
type Publish struct {
	GCSBucket     string `json:"gcsBucket,omitempty"`
	GitHubRepo    string `json:"githubRepo,omitempty"`
	PubSubProject string `json:"pubsubProject,omitempty"`
	PubSubTopic   string `json:"pubsubTopic,omitempty"`
}

// Config describes one release of the application.
type Config struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Publisher   string   `json:"publisher"`
	Version     string   `json:"version,omitempty"`
	EntryPoint  string   `json:"entryPoint"`
	Icon        string   `json:"icon"`
	ProgID      string   `json:"progId"`
	TargetOS    string   `json:"targetOS"`
	TargetArch  string   `json:"targetArch"`
	Tools       []string `json:"tools"`
	Extensions  []string `json:"extensions"`

	Freeze    Freeze    `json:"freeze"`
	Installer Installer `json:"installer"`
	Sandbox   Sandbox   `json:"sandbox"`
	Publish   Publish   `json:"publish"`
}

// Default returns the configuration used when no release file is present.
func Default() *Config {
	return &Config{
		Name:        "compressor",
		DisplayName: "Ultimate Image Compressor",
		Publisher:   "Ultimate Image Compressor",
		EntryPoint:  "compressor.py",
		Icon:        "icon.ico",
		ProgID:      "UltimateImageCompressor.Image",
		TargetOS:    "windows",
		TargetArch:  runtime.GOARCH,
		Tools:       append([]string(nil), DefaultTools...),
		Extensions:  append([]string(nil), DefaultExtensions...),
		Freeze: Freeze{
			Command: "pyinstaller",
		},
		Installer: Installer{
			Kind:  InstallerInno,
			AppID: "{6F1C2A4E-8B55-4C3B-9E0A-3D2B7C1E9F10}",
		},
	}
}

// ExeName is the file name of the frozen executable.
func (c *Config) ExeName() string {
	if c.IsWindows() {
		return c.Name + ".exe"
	}
	return c.Name
}

// ExeExt is the executable suffix for the target OS.
func (c *Config) ExeExt() string {
	if c.IsWindows() {
		return ".exe"
	}
	return ""
}

// IsWindows reports whether the release targets Windows.
func (c *Config) IsWindows() bool {
	return strings.EqualFold(c.TargetOS, "windows")
}
