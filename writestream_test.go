package hostbridge_test

import (
	"errors"
	"testing"

	"github.com/joeycumines/go-hostbridge"
	"github.com/joeycumines/go-hostbridge/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualSink records every call, and leaves write callbacks for the test
// to complete.
type manualSink struct {
	events    []string
	writes    []func(error)
	abortedBy error
	writerErr error
}

type manualWriter struct {
	sink *manualSink
}

func (s *manualSink) GetWriter() (hostbridge.Writer, error) {
	if s.writerErr != nil {
		return nil, s.writerErr
	}
	s.events = append(s.events, "acquire")
	return &manualWriter{sink: s}, nil
}

func (s *manualSink) Close(cb func(error)) {
	s.events = append(s.events, "close")
	cb(nil)
}

func (s *manualSink) Abort(reason error, cb func(error)) {
	s.events = append(s.events, "abort")
	s.abortedBy = reason
	cb(nil)
}

func (w *manualWriter) Write(chunk []byte, cb func(error)) {
	w.sink.events = append(w.sink.events, "write "+string(chunk))
	w.sink.writes = append(w.sink.writes, cb)
}

func (w *manualWriter) ReleaseLock() {
	w.sink.events = append(w.sink.events, "release")
}

func (s *manualSink) complete(err error) {
	cb := s.writes[0]
	s.writes = s.writes[1:]
	cb(err)
}

func TestWriteStream_writeInFlight(t *testing.T) {
	sink := &manualSink{}
	s := hostbridge.NewWriteStream(sink)
	assert.Empty(t, sink.events, `the writer is acquired lazily`)

	first := s.Write([]byte("a"))
	var w hosttest.Waker
	_, status := first.Poll(&w)
	require.Equal(t, hostbridge.Pending, status)

	err, status := s.Write([]byte("b")).Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.ErrorIs(t, err, hostbridge.ErrWriteInFlight)

	sink.complete(nil)
	assert.Equal(t, 1, w.Count())
	err, status = first.Poll(&w)
	require.Equal(t, hostbridge.Ready, status)
	require.NoError(t, err)

	second := s.Write([]byte("c"))
	boom := errors.New("disk full")
	sink.complete(boom)
	err, status = second.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"acquire", "write a", "write c"}, sink.events)
}

func TestWriteStream_closeReleasesFirst(t *testing.T) {
	sink := &manualSink{}
	s := hostbridge.NewWriteStream(sink)

	write := s.Write([]byte("x"))
	sink.complete(nil)
	err, status := write.Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	require.NoError(t, err)

	err, status = s.Close().Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"acquire", "write x", "release", "close"}, sink.events)

	err, _ = s.Close().Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, hostbridge.ErrClosed)
	err, _ = s.Abort(nil).Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, hostbridge.ErrClosed)
	err, _ = s.Write([]byte("late")).Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, hostbridge.ErrClosed)

	s.Release()
	assert.Equal(t, []string{"acquire", "write x", "release", "close"}, sink.events)
}

func TestWriteStream_closeWithoutWrites(t *testing.T) {
	sink := &manualSink{}
	s := hostbridge.NewWriteStream(sink)
	err, status := s.Close().Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"close"}, sink.events)
}

func TestWriteStream_abortNilReason(t *testing.T) {
	sink := &manualSink{}
	s := hostbridge.NewWriteStream(sink)
	_, status := s.Abort(nil).Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	var abortErr *hostbridge.AbortError
	assert.ErrorAs(t, sink.abortedBy, &abortErr)
}

func TestWriteStream_releaseAborts(t *testing.T) {
	sink := &manualSink{}
	s := hostbridge.NewWriteStream(sink)
	s.Write([]byte("x"))
	s.Release()
	s.Release()
	assert.Equal(t, []string{"acquire", "write x", "release", "abort"}, sink.events)
	assert.ErrorIs(t, sink.abortedBy, hostbridge.ErrStreamDropped)
}

func TestWriteStream_getWriterFails(t *testing.T) {
	boom := errors.New("locked")
	s := hostbridge.NewWriteStream(&manualSink{writerErr: boom})
	err, status := s.Write([]byte("x")).Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	assert.ErrorIs(t, err, boom)
}

func TestWriteBuilder(t *testing.T) {
	var (
		got    []string
		closed bool
	)
	s, err := hostbridge.NewWriteBuilder().
		Write(func(chunk []byte, c *hostbridge.WriteController) error {
			got = append(got, string(chunk))
			return nil
		}).
		Close(func() error {
			closed = true
			return nil
		}).
		Build()
	require.NoError(t, err)

	for _, chunk := range []string{"a", "b"} {
		err, status := s.Write([]byte(chunk)).Poll(hostbridge.NoopWaker)
		require.Equal(t, hostbridge.Ready, status)
		require.NoError(t, err)
	}
	err, status := s.Close().Poll(hostbridge.NoopWaker)
	require.Equal(t, hostbridge.Ready, status)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, closed)
}

func TestWriteBuilder_writeErrorFailsSink(t *testing.T) {
	boom := errors.New("boom")
	var ctrl *hostbridge.WriteController
	s, err := hostbridge.NewWriteBuilder().
		Start(func(c *hostbridge.WriteController) error {
			ctrl = c
			return nil
		}).
		Write(func([]byte, *hostbridge.WriteController) error { return boom }).
		Build()
	require.NoError(t, err)

	err, _ = s.Write([]byte("a")).Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ctrl.Signal().Aborted())

	err, _ = s.Write([]byte("b")).Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, boom)
	err, _ = s.Close().Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, boom)
}

func TestWriteBuilder_controllerError(t *testing.T) {
	boom := errors.New("boom")
	var ctrl *hostbridge.WriteController
	s, err := hostbridge.NewWriteBuilder().
		Start(func(c *hostbridge.WriteController) error {
			ctrl = c
			return nil
		}).
		Build()
	require.NoError(t, err)

	ctrl.Error(boom)
	err, _ = s.Write([]byte("a")).Poll(hostbridge.NoopWaker)
	assert.ErrorIs(t, err, boom)
}

func TestWriteBuilder_releaseAborts(t *testing.T) {
	var reasons []error
	s, err := hostbridge.NewWriteBuilder().
		Abort(func(reason error) error {
			reasons = append(reasons, reason)
			return nil
		}).
		Build()
	require.NoError(t, err)
	s.Release()
	require.Len(t, reasons, 1)
	assert.ErrorIs(t, reasons[0], hostbridge.ErrStreamDropped)
}

func TestWriteBuilder_startError(t *testing.T) {
	boom := errors.New("boom")
	_, err := hostbridge.NewWriteBuilder().
		Start(func(*hostbridge.WriteController) error { return boom }).
		Build()
	assert.ErrorIs(t, err, boom)
}
