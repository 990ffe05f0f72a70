//go:build debug

package channel

// New returns the channel used as a handler queue. Debug builds ignore
// size and hand out a rendezvous channel, so a producer outrunning its
// consumer blocks right at the send.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
