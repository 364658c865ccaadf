package ftpclient

import (
	"path"
	"strings"
)

// NormalizeRemoteDir turns a configured remote dir into a clean absolute
// slash path. Backslash separators such as `\\MXF` are accepted.
func NormalizeRemoteDir(dir string) string {
	dir = strings.TrimSpace(strings.ReplaceAll(dir, "\\", "/"))
	if dir == "" {
		return "/"
	}
	return path.Clean("/" + dir)
}
