package logger

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLogLevel overrides the initial level of DefaultLogger.
const EnvLogLevel = "OSS_CREDENTIALS_LOG_LEVEL"

// Format renders entries as `I1019 15:04:05.999999 file.go:12] k=v msg`.
type Format struct{}

func (mf *Format) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	caller := ""
	if entry.HasCaller() {
		caller = fmt.Sprintf("%s:%d", path.Base(entry.Caller.File), entry.Caller.Line)
	}

	fmt.Fprintf(b, "%s%s %s %s]", strings.ToUpper(entry.Level.String()[:1]), entry.Time.Format("0102"), entry.Time.Format("15:04:05.999999"), caller)
	if fields := kv(entry.Data); fields != "" {
		b.WriteString(" ")
		b.WriteString(fields)
	}
	b.WriteString(" ")
	b.WriteString(entry.Message)
	b.WriteString("\n")
	return b.Bytes(), nil
}

func kv(data logrus.Fields) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, data[key]))
	}
	return strings.Join(pairs, " ")
}

// DefaultLogger is shared by every package of this module.
var DefaultLogger = NewDefaultLogger()

func NewDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetReportCaller(true)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&Format{})
	if lv, err := logrus.ParseLevel(os.Getenv(EnvLogLevel)); err == nil {
		l.SetLevel(lv)
	}
	return l
}

// WithSubSys returns a child entry tagged with the sub system name.
func WithSubSys(name string) *logrus.Entry {
	return DefaultLogger.WithField("subSys", name)
}

func SetLevel(level string) error {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	DefaultLogger.Debugf("set log level %s", level)
	DefaultLogger.SetLevel(l)
	return nil
}
