package bundle

import (
	"bytes"
	"encoding/xml"
	"text/template"

	"github.com/pkg/errors"
)

// PlistFields are the values interpolated into Info.plist.
type PlistFields struct {
	Name       string
	Identifier string
	Version    string
	Executable string
	HasIcon    bool
}

var plistTemplate = template.Must(template.New("Info.plist").Funcs(template.FuncMap{
	"xml": func(s string) (string, error) {
		var buf bytes.Buffer
		err := xml.EscapeText(&buf, []byte(s))
		return buf.String(), err
	},
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleName</key>
	<string>{{ xml .Name }}</string>
	<key>CFBundleDisplayName</key>
	<string>{{ xml .Name }}</string>
	<key>CFBundleIdentifier</key>
	<string>{{ xml .Identifier }}</string>
	<key>CFBundleVersion</key>
	<string>{{ xml .Version }}</string>
	<key>CFBundleShortVersionString</key>
	<string>{{ xml .Version }}</string>
	<key>CFBundleExecutable</key>
	<string>{{ xml .Executable }}</string>
	<key>CFBundlePackageType</key>
	<string>APPL</string>
	<key>CFBundleInfoDictionaryVersion</key>
	<string>6.0</string>
{{- if .HasIcon }}
	<key>CFBundleIconFile</key>
	<string>AppIcon</string>
{{- end }}
	<key>CFBundleDocumentTypes</key>
	<array>
		<dict>
			<key>CFBundleTypeName</key>
			<string>JPEG XL Image</string>
			<key>CFBundleTypeRole</key>
			<string>Viewer</string>
			<key>CFBundleTypeExtensions</key>
			<array>
				<string>jxl</string>
			</array>
			<key>LSItemContentTypes</key>
			<array>
				<string>public.jpeg-xl</string>
			</array>
		</dict>
	</array>
	<key>LSMinimumSystemVersion</key>
	<string>10.13</string>
	<key>NSHighResolutionCapable</key>
	<true/>
</dict>
</plist>
`))

// RenderPlist produces the Info.plist contents for an application bundle.
func RenderPlist(f PlistFields) ([]byte, error) {
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, f); err != nil {
		return nil, errors.Wrap(err, "failed to render Info.plist")
	}
	return buf.Bytes(), nil
}
