package logging

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)

const componentField = "component"

// TextFormatter renders
//
//	2006-01-02 15:04:05 [LEVEL] [component] [file:line func] message k=v ...
//
// with fields sorted by key.
type TextFormatter struct {
	Config FormatConfig
}

func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if !f.Config.DisableTimestamp {
		fmt.Fprintf(&b, "%s ", entry.Time.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "[%s]", levelName(entry.Level))

	if c, ok := entry.Data[componentField]; ok && !f.Config.DisableComponent {
		fmt.Fprintf(&b, " [%s]", componentStyle.Render(fmt.Sprint(c)))
	}
	if entry.HasCaller() {
		fmt.Fprintf(&b, " [%s:%d %s]",
			filepath.Base(entry.Caller.File), entry.Caller.Line, filepath.Base(entry.Caller.Function))
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	for _, key := range fieldKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(level logrus.Level) string {
	if level == logrus.WarnLevel {
		return "WARN"
	}
	return strings.ToUpper(level.String())
}

func fieldKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		if key != componentField {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
