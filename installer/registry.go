package installer

import (
	"fmt"
	"strings"

	"github.com/imagecompressor/tools/config"
)

// AppConstant is the installer constant expanding to the install directory.
const AppConstant = "{app}"

// ShiftFlag is the argument shell integration passes before the file path.
const ShiftFlag = "--shift"

// Entry is one registry value (or bare key) written at install time.
type Entry struct {
	Subkey    string
	ValueType string // "string" or "none"
	ValueName string // empty for the key's default value
	ValueData string
	Flags     []string
}

// Resolve substitutes the install directory for the {app} constant.
func (e Entry) Resolve(appDir string) Entry {
	e.ValueData = strings.ReplaceAll(e.ValueData, AppConstant, appDir)
	return e
}

// OpenCommand is the shell open command registered for the executable,
// exactly as Windows stores it: "<app>\<exe>" --shift "%1".
func OpenCommand(appDir, exe string) string {
	return fmt.Sprintf(`"%s\%s" %s "%%1"`, appDir, exe, ShiftFlag)
}

// Entries lists the file association keys for c. Every key is removed on
// uninstall.
func Entries(c *config.Config) []Entry {
	exe := c.ExeName()
	command := OpenCommand(AppConstant, exe)
	classes := `Software\Classes`
	progID := classes + `\` + c.ProgID
	application := classes + `\Applications\` + exe

	entries := make([]Entry, 0, len(c.Extensions)*2+6)
	for _, ext := range c.Extensions {
		entries = append(entries, Entry{
			Subkey:    classes + `\` + ext + `\OpenWithProgids`,
			ValueType: "string",
			ValueName: c.ProgID,
			Flags:     []string{"uninsdeletevalue"},
		})
	}
	entries = append(entries,
		Entry{
			Subkey:    progID,
			ValueType: "string",
			ValueData: c.DisplayName,
			Flags:     []string{"uninsdeletekey"},
		},
		Entry{
			Subkey:    progID + `\DefaultIcon`,
			ValueType: "string",
			ValueData: fmt.Sprintf(`"%s\%s",0`, AppConstant, exe),
		},
		Entry{
			Subkey:    progID + `\shell\open\command`,
			ValueType: "string",
			ValueData: command,
		},
		Entry{
			Subkey:    application,
			ValueType: "string",
			ValueName: "FriendlyAppName",
			ValueData: c.DisplayName,
			Flags:     []string{"uninsdeletekey"},
		},
		Entry{
			Subkey:    application + `\shell\open\command`,
			ValueType: "string",
			ValueData: command,
			Flags:     []string{"uninsdeletekey"},
		},
	)
	for _, ext := range c.Extensions {
		entries = append(entries, Entry{
			Subkey:    application + `\SupportedTypes`,
			ValueType: "string",
			ValueName: ext,
		})
	}
	return entries
}

// Inno renders the entry as a [Registry] section line. HKA resolves to
// HKLM for administrative installs and HKCU otherwise.
func (e Entry) Inno() string {
	parts := []string{
		"Root: HKA",
		"Subkey: " + innoQuote(e.Subkey),
		"ValueType: " + e.ValueType,
	}
	if e.ValueType != "none" {
		parts = append(parts,
			"ValueName: "+innoQuote(e.ValueName),
			"ValueData: "+innoQuote(e.ValueData),
		)
	}
	if len(e.Flags) > 0 {
		parts = append(parts, "Flags: "+strings.Join(e.Flags, " "))
	}
	return strings.Join(parts, "; ")
}

// quotes a section parameter, doubling embedded quotes
func innoQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// RegFile renders the entries, resolved against appDir, as a registry
// export applying the per-user association.
func RegFile(c *config.Config, appDir string) string {
	var b strings.Builder
	b.WriteString("Windows Registry Editor Version 5.00\r\n")

	lastKey := ""
	for _, e := range Entries(c) {
		e = e.Resolve(appDir)
		if e.Subkey != lastKey {
			fmt.Fprintf(&b, "\r\n[HKEY_CURRENT_USER\\%s]\r\n", e.Subkey)
			lastKey = e.Subkey
		}
		if e.ValueType == "none" {
			continue
		}
		name := "@"
		if e.ValueName != "" {
			name = regQuote(e.ValueName)
		}
		fmt.Fprintf(&b, "%s=%s\r\n", name, regQuote(e.ValueData))
	}
	return b.String()
}

func regQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
