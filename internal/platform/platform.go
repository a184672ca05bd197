// Package platform verifies the session can host the clipboard watcher
// before anything daemonizes, so failures surface in the terminal instead of
// a log file.
package platform

import (
	"errors"
	"os"
	"os/exec"
)

var lookPath = exec.LookPath

// CheckEnvironment verifies a graphical session and a usable clipboard
// helper are present.
func CheckEnvironment() error {
	wayland := os.Getenv("WAYLAND_DISPLAY") != ""
	x11 := os.Getenv("DISPLAY") != ""

	if !wayland && !x11 {
		return errors.New("no graphical session: neither WAYLAND_DISPLAY nor DISPLAY is set")
	}

	if wayland {
		if haveAll("wl-paste", "wl-copy") {
			return nil
		}
		if !x11 {
			return errors.New("wayland session without wl-clipboard: install wl-clipboard (wl-paste, wl-copy)")
		}
	}

	if !haveAll("xclip") {
		return errors.New("x11 session without xclip: install xclip")
	}
	return nil
}

func haveAll(names ...string) bool {
	for _, name := range names {
		if _, err := lookPath(name); err != nil {
			return false
		}
	}
	return true
}
