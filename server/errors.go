package server

import "errors"

var (
	ErrNilService    = errors.New("server: service is nil")
	ErrNilRepository = errors.New("server: repository is nil")
)
