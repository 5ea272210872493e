package domain

import "fmt"

// ErrorInfo carries the driver-level error triple for the most recent failed
// operation on a connection: the five character SQLSTATE, the driver-specific
// error code and the driver message. The zero value means no error has been
// observed.
type ErrorInfo struct {
	SQLState string // Five character SQLSTATE, "00000" or empty when clear.
	Code     uint16 // Driver-specific error code.
	Message  string // Driver-specific error message.
}

// String renders the triple in the conventional SQLSTATE form.
func (e ErrorInfo) String() string {
	return fmt.Sprintf("SQLSTATE[%s] %d: %s", e.SQLState, e.Code, e.Message)
}
