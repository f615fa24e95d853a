package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLevel(t *testing.T) {
	testCases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"ERROR":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
		"Info":    logrus.InfoLevel,
		"trace":   logrus.TraceLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"":        logrus.TraceLevel,
		"loud":    logrus.TraceLevel,
	}
	for in, want := range testCases {
		assert.Equal(t, want, GetLevel(in), in)
	}
}

func TestSetup_FileOutput(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	logFile := filepath.Join(t.TempDir(), "service")
	flush := Setup(LoggerSetupParams{
		LogFileName: logFile,
		LogLevel:    "warn",
	})
	require.NotNil(t, flush)
	flush()

	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	logrus.Warnln("written to file")
	logrus.Infoln("below level")

	content, err := os.ReadFile(logFile + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to file")
	assert.NotContains(t, string(content), "below level")
}

type recordingTransport struct {
	mutex  sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}

func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTransport) Flush(time.Duration) bool { return true }

func (t *recordingTransport) Close() {}

func TestSentryHook_Fire(t *testing.T) {
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	require.NoError(t, err)

	hook := &SentryHook{
		levels: []logrus.Level{logrus.ErrorLevel},
		hub:    sentry.NewHub(client, sentry.NewScope()),
	}
	assert.Equal(t, []logrus.Level{logrus.ErrorLevel}, hook.Levels())

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(hook)

	logger.WithError(errors.New("redis down")).WithField("user", "u1").Error("cache put failed")
	logger.Error("plain message")
	logger.Warn("not forwarded")

	transport.mutex.Lock()
	defer transport.mutex.Unlock()
	require.Len(t, transport.events, 2)

	first := transport.events[0]
	assert.Equal(t, sentry.LevelError, first.Level)
	require.NotEmpty(t, first.Exception)
	assert.Equal(t, "redis down", first.Exception[len(first.Exception)-1].Value)
	assert.Equal(t, "u1", first.Extra["user"])
	assert.Equal(t, "cache put failed", first.Extra["message"])

	second := transport.events[1]
	require.NotEmpty(t, second.Exception)
	assert.Equal(t, "plain message", second.Exception[len(second.Exception)-1].Value)
}
