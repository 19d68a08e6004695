// Package launcher is the OS integration layer: launcher scripts, desktop
// shortcuts and autostart registration for an installed server.
//
// It only receives the hand-off data (root, jar, JVM settings and names) and
// never decides what is installed. Each OS family is one Integration
// implementation: systemd user services on Linux, launchd agents on macOS and
// Start Menu batch files on Windows.
package launcher
