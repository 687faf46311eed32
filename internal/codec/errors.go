package codec

import "errors"

// ErrInvalidArgument is returned for unusable learner inputs: a target
// vocabulary size that is not larger than the current one, or a corpus
// with no countable adjacent pairs.
var ErrInvalidArgument = errors.New("codec: invalid argument")
