package gui

const quitTooltip = `Quit the kcal menu bar applet, but keep the kcal daemon running.

Since the daemon is still running, records keep being collected and other clients keep working. To stop kcal completely, stop the daemon as well (kcal daemon is managed by your init system or was started manually).`
