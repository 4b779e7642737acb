package types

import "errors"

// ErrValidation marks caller input the gateway refuses to send.
var ErrValidation = errors.New("validation error")
