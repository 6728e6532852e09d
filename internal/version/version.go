// Package version несёт сборочную информацию сервиса продаж,
// проставляемую линковщиком через -ldflags.
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// String возвращает сборочную информацию одной строкой для логов и health.
func String() string {
	return fmt.Sprintf("version=%s commit=%s date=%s", version, commit, date)
}
