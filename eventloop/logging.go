//go:build linux || darwin

package eventloop

// logError reports a recovered panic from a task or I/O callback.
func (l *Loop) logError(msg string, panicValue any) {
	l.logger.Err().
		Uint64(`loop_id`, l.id).
		Err(&PanicError{Value: panicValue}).
		Log(msg)
}

// logCritical reports a failure that terminates the loop.
func (l *Loop) logCritical(msg string, err error) {
	l.logger.Crit().
		Uint64(`loop_id`, l.id).
		Err(err).
		Log(msg)
}

func (l *Loop) logDebug(msg string) {
	l.logger.Debug().
		Uint64(`loop_id`, l.id).
		Uint64(`tick`, l.tickCount.Load()).
		Int64(`refs`, l.refs.Load()).
		Log(msg)
}
