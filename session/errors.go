package session

import "errors"

var (
	ErrStopped = errors.New("session: controller stopped")
	ErrBadPeer = errors.New("session: invalid peer id")
)
