/*
=================================================================================
EXIT CODES
=================================================================================

Three process exit codes for the CLI driver built on top of this
package: 0 for a clean run, 134 (SIGABRT) for a kernelapi.KernelException
raised by a node or connection model, and 139 (SIGSEGV) for every other
error. cmd/simulate is the only caller.
=================================================================================
*/

package kernel

import (
	"errors"

	"github.com/SynapticNetworks/spike-kernel/kernelapi"
)

const (
	ExitOK              = 0
	ExitKernelException = 134
	ExitFatalInvariant  = 139
)

// ExitCodeFor maps an error returned from Simulate (or Create/Connect)
// to the process exit code the CLI should use. A nil error maps to
// ExitOK; a kernelapi.KernelException, also when wrapped, maps to
// ExitKernelException; any other error, including BadProperty and
// UnknownModel, maps to ExitFatalInvariant.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var ke *kernelapi.KernelException
	if errors.As(err, &ke) {
		return ExitKernelException
	}
	return ExitFatalInvariant
}
