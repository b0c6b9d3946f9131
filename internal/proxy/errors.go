package proxy

import "fmt"

// BindError reports a failure to bind the listen address at startup.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// CrashError reports an unrecoverable failure of the accept loop after a
// successful bind.
type CrashError struct {
	Err error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("server crashed: %v", e.Err)
}

func (e *CrashError) Unwrap() error { return e.Err }
