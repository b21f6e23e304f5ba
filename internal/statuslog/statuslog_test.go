package statuslog

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() (*logrus.Entry, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logrus.NewEntry(logger), &buf
}

func TestLog_FlushesOnBatchSize(t *testing.T) {
	entry, buf := newTestLogger()
	l := New(entry, Config{BatchSize: 2, FlushInterval: time.Hour})
	defer l.Close()

	l.Record(Transition{Component: "producer", Identity: "a", Status: "RUNNING", At: time.Time{}})
	l.Record(Transition{Component: "producer", Identity: "b", Status: "RUNNING", At: time.Time{}})

	require.Eventually(t, func() bool {
		return buf.Len() > 0
	}, time.Second, time.Millisecond)
	assert.Contains(t, buf.String(), `"identity":"a"`)
	assert.Contains(t, buf.String(), `"identity":"b"`)
}

func TestLog_FlushesOnTicker(t *testing.T) {
	entry, buf := newTestLogger()
	l := New(entry, Config{BatchSize: 1000, FlushInterval: 10 * time.Millisecond})
	defer l.Close()

	l.Record(Transition{Component: "consumer", Identity: "sink", Status: "CANCELLED"})

	require.Eventually(t, func() bool {
		return buf.Len() > 0
	}, time.Second, time.Millisecond)
	assert.Contains(t, buf.String(), `"identity":"sink"`)
}

func TestLog_CloseFlushesRemaining(t *testing.T) {
	entry, buf := newTestLogger()
	l := New(entry, Config{BatchSize: 1000, FlushInterval: time.Hour})

	l.Record(Transition{Component: "producer", Identity: "flush-me", Status: "ERRORED"})
	l.Close()

	assert.Contains(t, buf.String(), `"identity":"flush-me"`)
}

func TestLog_RecordNeverBlocksEvenWhenQueueFull(t *testing.T) {
	entry, _ := newTestLogger()
	l := New(entry, Config{BatchSize: 1000, FlushInterval: time.Hour, QueueCapacity: 1})
	defer l.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10_000; i++ {
			l.Record(Transition{Component: "producer", Identity: "spam", Status: "RUNNING"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked under a full queue")
	}
}
