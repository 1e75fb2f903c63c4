package proteinagent

import (
	"fmt"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// Sdump pretty-prints values prefixed with the caller's location.
func Sdump(v ...any) string {
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	return spew.Sdump(args...)
}
