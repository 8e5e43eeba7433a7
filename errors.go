package rfc6979

import "errors"

// ErrInvalidLength is returned by New when the private key or the hash is
// not exactly BlockSize (32) bytes. The wrapping error names which argument
// was rejected. This is the generator's only failure mode; once constructed
// it cannot fail.
var ErrInvalidLength = errors.New("invalid input length")
