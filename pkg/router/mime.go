package router

import "strings"

// contentTypes is the fixed extension table used to correct static asset
// content types. Extensions are matched case-sensitively.
var contentTypes = map[string]string{
	".css":  "text/css",
	".js":   "application/javascript",
	".html": "text/html",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// ContentTypeFor returns the content type for path's extension, or "" when
// the extension is not in the table.
func ContentTypeFor(path string) string {
	slash := strings.LastIndexByte(path, '/')
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot < slash {
		return ""
	}
	return contentTypes[path[dot:]]
}
