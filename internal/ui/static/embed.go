// Пакет static — встроенные статические ресурсы консоли.
// Файлы встраиваются в бинарник через //go:embed и раздаются под /admin/.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

// content — встроенная файловая система со всеми статическими ресурсами.
//
//go:embed index.html css/*.css js/*.js
var content embed.FS

// FileSystem возвращает http.FileSystem для обработки запросов к /admin/*.
// Корень отдаёт index.html, ассеты — /admin/css/admin.css, /admin/js/app.js.
func FileSystem() http.FileSystem {
	return http.FS(content)
}

// FS возвращает fs.FS для прямого доступа к встроенным файлам.
func FS() fs.FS {
	return content
}
