//go:build !clipboard_x11

package clipboard

// nativeBridge reports the compiled-in native backend; none in this build.
func nativeBridge() imageBridge { return nil }
