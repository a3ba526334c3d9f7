package tools

import "errors"

var (
	ErrToolNameEmpty         = errors.New("tool name must not be empty")
	ErrToolExecuteNil        = errors.New("tool execute function must not be nil")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
	ErrToolNotFound          = errors.New("tool not found")
	ErrMissingRequiredArg    = errors.New("missing required argument")
	ErrWrongArgType          = errors.New("argument has the wrong type")
)
