package installer

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/util"
)

// RootDefine is the preprocessor variable the script requires on the
// compiler command line (/DMyAppRoot=<project root>).
const RootDefine = "MyAppRoot"

var scriptTemplate = template.Must(template.New("iss").
	Delims("<<", ">>").
	Funcs(template.FuncMap{"quote": innoQuote, "constant": innoConstant}).
	Parse(scriptSource))

// The script refuses to compile without MyAppRoot so that it never picks up
// files relative to whatever directory the compiler was started from.
const scriptSource = `; Installer definition for << .DisplayName >> << .Version >>.
; Compile with: ISCC /D` + RootDefine + `=<project root> <this file>

#ifndef ` + RootDefine + `
  #error ` + RootDefine + ` must be defined: ISCC /D` + RootDefine + `=<project root>
#endif

#define MyAppName << quote .DisplayName >>
#define MyAppVersion << quote .Version >>
#define MyAppPublisher << quote .Publisher >>
#define MyAppExeName << quote .ExeName >>

[Setup]
AppId=<< constant .AppID >>
AppName={#MyAppName}
AppVersion={#MyAppVersion}
AppPublisher={#MyAppPublisher}
DefaultDirName={autopf}\{#MyAppName}
DefaultGroupName={#MyAppName}
DisableProgramGroupPage=yes
ChangesAssociations=yes
PrivilegesRequiredOverridesAllowed=dialog
OutputDir={#` + RootDefine + `}\<< .InstallerDir >>
OutputBaseFilename=<< .BaseName >>
SetupIconFile={#` + RootDefine + `}\<< .Icon >>
UninstallDisplayIcon={app}\{#MyAppExeName}
Compression=lzma2
SolidCompression=yes
WizardStyle=modern

[Languages]
Name: "english"; MessagesFile: "compiler:Default.isl"

[Tasks]
Name: "desktopicon"; Description: "{cm:CreateDesktopIcon}"; GroupDescription: "{cm:AdditionalIcons}"; Flags: unchecked
Name: "sendto"; Description: "Add to the ""Send to"" menu"; GroupDescription: "{cm:AdditionalIcons}"

[Files]
Source: "{#` + RootDefine + `}\<< .DistDir >>\<< .Name >>\*"; DestDir: "{app}"; Flags: ignoreversion recursesubdirs createallsubdirs

[Icons]
Name: "{autoprograms}\{#MyAppName}"; Filename: "{app}\{#MyAppExeName}"
Name: "{autodesktop}\{#MyAppName}"; Filename: "{app}\{#MyAppExeName}"; Tasks: desktopicon
Name: "{usersendto}\{#MyAppName}"; Filename: "{app}\{#MyAppExeName}"; Tasks: sendto

[Registry]
<< range .Registry >><< .Inno >>
<< end >>
[Run]
Filename: "{app}\{#MyAppExeName}"; Description: "{cm:LaunchProgram,{#StringChange(MyAppName, '&', '&&')}}"; Flags: nowait postinstall skipifsilent
`

// escapes a literal brace so the compiler does not read it as a constant
func innoConstant(s string) string {
	return strings.Replace(s, "{", "{{", 1)
}

type scriptData struct {
	*config.Config
	Version      string
	ExeName      string
	BaseName     string
	InstallerDir string
	DistDir      string
	Registry     []Entry
}

// BaseName is the deterministic file name, without extension, of the setup
// executable for a version.
func BaseName(c *config.Config, version string) string {
	return c.Name + "-" + version + "-setup"
}

// Script renders the installer definition for a version.
func Script(c *config.Config, version string) string {
	var b bytes.Buffer
	util.Check(scriptTemplate.Execute(&b, scriptData{
		Config:       c,
		Version:      version,
		ExeName:      c.ExeName(),
		BaseName:     BaseName(c, version),
		InstallerDir: layout.InstallerDirName,
		DistDir:      layout.DistDirName,
		Registry:     Entries(c),
	}))
	return b.String()
}
