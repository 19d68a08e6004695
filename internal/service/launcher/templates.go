package launcher

import "strings"

const shellScriptTemplate = `#!/bin/sh
set -eu

WORKDIR="{{WORKDIR}}"
JAR="{{JAR}}"
XMX="{{XMX}}"
XMS="{{XMS}}"
EXTRA_ARGS="{{EXTRA_ARGS}}"

cd "$WORKDIR"
exec java -Xmx${XMX} -Xms${XMS} -jar "$JAR" $EXTRA_ARGS
`

const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=Minecraft Server {{DISPLAY_NAME}}
GenericName=Minecraft Server
Comment=Minecraft Server {{DISPLAY_NAME}}
Exec={{EXEC_PATH}}
Terminal=true
Categories=Game;Server;
`

const systemdUnitTemplate = `[Unit]
Description=Minecraft Server {{DISPLAY_NAME}}
After=network.target

[Service]
Type=simple
WorkingDirectory={{WORKDIR}}
ExecStart={{EXEC_PATH}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// commandWrapperTemplate is opened by Terminal on double click.
const commandWrapperTemplate = `#!/bin/sh
set -eu
exec "{{EXEC_PATH}}"
`

const launchAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
  <dict>
    <key>Label</key>
    <string>{{LABEL}}</string>

    <key>ProgramArguments</key>
    <array>
      <string>{{EXEC_PATH}}</string>
    </array>

    <key>WorkingDirectory</key>
    <string>{{WORKDIR}}</string>

    <key>RunAtLoad</key>
    <true/>

    <key>StandardOutPath</key>
    <string>{{WORKDIR}}/logs/launchd.out.log</string>
    <key>StandardErrorPath</key>
    <string>{{WORKDIR}}/logs/launchd.err.log</string>
  </dict>
</plist>
`

const batchFileTemplate = "@echo off\r\n" +
	"cd /d \"{{WORKDIR}}\"\r\n" +
	"java -Xmx{{XMX}} -Xms{{XMS}} -jar \"{{JAR}}\" {{EXTRA_ARGS}}\r\n"

// render substitutes {{KEY}} placeholders.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2) //nolint:mnd // Key and value.
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

// launchValues are the placeholders shared by the launcher scripts.
func launchValues(h *Handoff) map[string]string {
	return map[string]string{
		"WORKDIR":    h.Root,
		"JAR":        h.Jar,
		"XMX":        h.Xmx,
		"XMS":        h.Xms,
		"EXTRA_ARGS": strings.Join(h.ExtraArgs, " "),
	}
}
