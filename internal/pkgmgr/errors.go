package pkgmgr

import "errors"

var (
	ErrUnknownManager = errors.New("unknown package manager")
)
