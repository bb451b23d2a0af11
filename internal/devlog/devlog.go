package devlog

import (
	"fmt"
	"time"
)

// Printf prints a timestamped debug message to stdout.
// Format: "15:04:05.000 [Tag] message\n"
func Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s", time.Now().Format("15:04:05.000"), msg)
}

// Tagf prints a timestamped message under a bracketed tag.
func Tagf(tag, format string, args ...any) {
	Printf("[%s] %s\n", tag, fmt.Sprintf(format, args...))
}
