package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
	ErrSQLTooLarge         = errors.New("sql text exceeds the size limit")
	ErrSuspiciousInput     = errors.New("input looks like an injection attempt")
)
