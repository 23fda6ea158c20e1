package ports

import (
	"errors"
	"fmt"

	"github.com/nexuscrm/forcemapper/pkg/constants"
)

// Fault is an error reported by the remote store itself
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// NewFault creates a remote fault
func NewFault(code, format string, args ...interface{}) *Fault {
	return &Fault{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsNoSuchObject reports whether err means the object or field does not exist yet.
// Such faults drive auto-creation instead of aborting.
func IsNoSuchObject(err error) bool {
	var fault *Fault
	if !errors.As(err, &fault) {
		return false
	}
	switch fault.Code {
	case constants.FaultInvalidType, constants.FaultInvalidField, constants.FaultNotFound:
		return true
	}
	return false
}
