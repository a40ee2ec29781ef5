package physics

import "fmt"

var (
	ErrUnknownBody = fmt.Errorf("unknown body")
	ErrNonFinite   = fmt.Errorf("non-finite body state")
)
