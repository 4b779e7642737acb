package assist

import (
	"github.com/notelens/assist-client/internal/dispatch"
)

// Stream is a pull-style streaming response. Drain it with Recv until
// io.EOF, then read the assembled result from Result.
type Stream struct {
	h        *dispatch.StreamHandle
	observed bool
}

// Recv returns the next event. io.EOF marks clean termination.
func (s *Stream) Recv() (Event, error) {
	ev, err := s.h.Recv()
	if err != nil && !s.observed {
		s.observed = true
		observeStreamEnd(s, err)
	}
	return ev, err
}

// Result returns the normalized call result once the stream has terminated
// cleanly, nil otherwise.
func (s *Stream) Result() *CallResult {
	return s.h.Result()
}

// Close aborts an undrained stream. Closing a finished stream is a no-op.
func (s *Stream) Close() error {
	return s.h.Close()
}

func observeStreamEnd(s *Stream, err error) {
	if res := s.h.Result(); res != nil {
		observeCall(res, nil)
		return
	}
	observeCall(nil, err)
}
