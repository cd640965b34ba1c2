package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yaroslav/nassession/internal/logging"
	"github.com/yaroslav/nassession/sdk"
)

func TestSnackbarShowAppliesDefaults(t *testing.T) {
	var out bytes.Buffer
	s := NewSnackbar(&out, nil)
	defer s.Close()

	s.Show("Token expired, please log back in.", "Close", Options{})

	msg, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Token expired, please log back in.", msg.Text)
	assert.Equal(t, "Close", msg.Action)
	assert.Equal(t, DefaultDuration, msg.Duration)
	assert.Equal(t, PositionBottom, msg.Position)
	assert.Equal(t, "Token expired, please log back in.  [Close]\n", out.String())
}

func TestSnackbarKeepsOneMessage(t *testing.T) {
	s := NewSnackbar(nil, nil)
	defer s.Close()

	s.Show("first", "Close", Options{})
	s.Show("second", "Close", Options{})

	msg, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Text)
}

func TestSnackbarAutoDismiss(t *testing.T) {
	s := NewSnackbar(nil, nil)
	defer s.Close()

	s.Show("short lived", "", Options{Duration: 10 * time.Millisecond})

	assert.Eventually(t, func() bool {
		_, ok := s.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestSnackbarReplacedMessageOutlivesOldTimer(t *testing.T) {
	s := NewSnackbar(nil, nil)
	defer s.Close()

	s.Show("old", "", Options{Duration: 10 * time.Millisecond})
	s.Show("new", "", Options{Duration: time.Hour})

	time.Sleep(30 * time.Millisecond)

	msg, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "new", msg.Text)
}

func TestSnackbarDismiss(t *testing.T) {
	s := NewSnackbar(nil, nil)
	defer s.Close()

	s.Show("visible", "Close", Options{})
	s.Dismiss()

	_, ok := s.Current()
	assert.False(t, ok)

	// Dismissing with nothing visible is fine.
	s.Dismiss()
}

func TestSnackbarCloseIgnoresLaterShows(t *testing.T) {
	var out bytes.Buffer
	s := NewSnackbar(&out, nil)

	s.Show("before", "", Options{Duration: time.Hour})
	s.Close()
	s.Show("after", "", Options{})

	_, ok := s.Current()
	assert.False(t, ok)
	assert.NotContains(t, out.String(), "after")
}

func TestLogReporterRPCError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	var out bytes.Buffer
	r := NewLogReporter(&out, zap.New(core))

	r.Report(context.Background(), &sdk.RPCError{Method: sdk.MethodFailoverStatus, Code: 500, Message: "boom"})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "rpc call failed", entry.Message)
	assert.Equal(t, sdk.MethodFailoverStatus, entry.ContextMap()[logging.FieldMethod])
	assert.Contains(t, out.String(), "boom")
}

func TestLogReporterPrefersContextLogger(t *testing.T) {
	ownCore, ownLogs := observer.New(zapcore.InfoLevel)
	ctxCore, ctxLogs := observer.New(zapcore.InfoLevel)
	r := NewLogReporter(nil, zap.New(ownCore))

	ctx := logging.WithLogger(context.Background(), zap.New(ctxCore))
	r.Report(ctx, errors.New("plain failure"))

	assert.Equal(t, 0, ownLogs.Len())
	require.Equal(t, 1, ctxLogs.Len())
	assert.Equal(t, "operation failed", ctxLogs.All()[0].Message)
}

func TestLogReporterIgnoresNil(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := NewLogReporter(nil, zap.New(core))
	r.Report(context.Background(), nil)
	assert.Equal(t, 0, logs.Len())
}
