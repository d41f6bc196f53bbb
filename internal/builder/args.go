package builder

import "os"

// EnvExecutable names the build executable to invoke instead of the default
// module-execution path.
const EnvExecutable = "SPHINXBUILD"

// makeModeFlag selects the build tool's make mode, which expects the source
// and destination immediately after the builder name.
const makeModeFlag = "-M"

// DefaultCommand runs the build tool through the default interpreter.
var DefaultCommand = []string{"python3", "-m", "sphinx"}

// Args assembles the build tool's arguments. source and dest come first and
// the pass-through options follow them. In make mode (-M builder) the pair
// goes right after the builder name instead. Filenames always come last.
func Args(source, dest string, passthrough, filenames []string) []string {
	args := make([]string, 0, len(passthrough)+len(filenames)+2) //nolint:mnd // source and dest

	if i := indexOf(passthrough, makeModeFlag); i >= 0 && i+1 < len(passthrough) {
		args = append(args, passthrough[:i+2]...)
		args = append(args, source, dest)
		args = append(args, passthrough[i+2:]...)
	} else {
		args = append(args, source, dest)
		args = append(args, passthrough...)
	}
	return append(args, filenames...)
}

// Executable returns the command prefix: $SPHINXBUILD when set, otherwise
// fallback, otherwise DefaultCommand.
func Executable(fallback []string) []string {
	if env := os.Getenv(EnvExecutable); env != "" {
		return []string{env}
	}
	if len(fallback) > 0 {
		return append([]string(nil), fallback...)
	}
	return append([]string(nil), DefaultCommand...)
}

// Command returns the complete argv for one build.
func Command(prefix []string, source, dest string, passthrough, filenames []string) []string {
	return append(Executable(prefix), Args(source, dest, passthrough, filenames)...)
}

func indexOf(slice []string, item string) int {
	for i, s := range slice {
		if s == item {
			return i
		}
	}
	return -1
}
