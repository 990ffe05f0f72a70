//go:build !debug

package channel

// New returns the channel used as a handler queue. Production builds get
// a buffered channel sized by the caller.
func New[T any](size int) Channel[T] {
	return NewBuffered[T](size)
}
