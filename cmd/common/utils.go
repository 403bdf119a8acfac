package common

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Console prints user-facing progress for CLI commands
type Console struct {
	out        io.Writer
	Silent     bool
	ShowEmojis bool
}

// NewConsole creates a console writing to out
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, ShowEmojis: true}
}

// Writer returns the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

func (c *Console) print(emoji, plain, format string, args ...interface{}) {
	prefix := emoji
	if !c.ShowEmojis {
		prefix = plain
	}
	fmt.Fprintf(c.out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Header prints a formatted header
func (c *Console) Header(title string) {
	if c.Silent {
		return
	}
	prefix := "🎯"
	if !c.ShowEmojis {
		prefix = "***"
	}
	fmt.Fprintf(c.out, "\n%s %s\n%s\n", prefix, strings.ToUpper(title), strings.Repeat("=", len(title)+5))
}

// Info prints an info message
func (c *Console) Info(format string, args ...interface{}) {
	if !c.Silent {
		c.print("ℹ️ ", "[INFO]", format, args...)
	}
}

// Success prints a success message
func (c *Console) Success(format string, args ...interface{}) {
	if !c.Silent {
		c.print("✅", "[SUCCESS]", format, args...)
	}
}

// Warning prints a warning message
func (c *Console) Warning(format string, args ...interface{}) {
	if !c.Silent {
		c.print("⚠️ ", "[WARN]", format, args...)
	}
}

// Error prints an error message, even in silent mode
func (c *Console) Error(format string, args ...interface{}) {
	c.print("❌", "[ERROR]", format, args...)
}
