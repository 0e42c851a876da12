package suite

import (
	"errors"

	managerout "amio/internal/modules/manager/port/out"
	traitdomain "amio/internal/modules/trait/domain"
	apperrors "amio/internal/platform/errors"
)

// UnknownPanicMessage is the fixed sentinel written to the error buffer
// when a suite function catches a panic whose value is not an error.
const UnknownPanicMessage = "Unknown non-exception object thrown"

type exported struct {
	impl managerout.ManagerInterface
}

// Export wraps a native implementation as a V1 suite plus handle, the
// producer side of the bridge. Every suite function converts failures
// at the boundary: returned errors become ErrorCodeException (or
// ErrorCodeNotImplemented), panics carrying an error value become
// ErrorCodeException with that message, and any other panic value
// becomes ErrorCodeUnknown with UnknownPanicMessage. Nothing unwinds
// through the table.
func Export(impl managerout.ManagerInterface) (V1, Handle) {
	suite := V1{
		Identifier: func(errMsg, out *StringView, h Handle) ErrorCode {
			return catchAsCode(errMsg, func() ErrorCode {
				id, err := implOf(h).Identifier()
				if err != nil {
					return assignError(errMsg, err)
				}
				out.Assign(id)
				return ErrorCodeOK
			})
		},
		DisplayName: func(errMsg, out *StringView, h Handle) ErrorCode {
			return catchAsCode(errMsg, func() ErrorCode {
				name, err := implOf(h).DisplayName()
				if err != nil {
					return assignError(errMsg, err)
				}
				out.Assign(name)
				return ErrorCodeOK
			})
		},
		Info: func(errMsg *StringView, out *traitdomain.InfoDictionary, h Handle) ErrorCode {
			return catchAsCode(errMsg, func() ErrorCode {
				info, err := implOf(h).Info()
				if err != nil {
					return assignError(errMsg, err)
				}
				*out = info
				return ErrorCodeOK
			})
		},
		Dtor: func(h Handle) {
			// Destruction must not fail across the boundary.
			defer func() { _ = recover() }()
			_ = implOf(h).Close()
		},
	}
	return suite, &exported{impl: impl}
}

func implOf(h Handle) managerout.ManagerInterface {
	return h.(*exported).impl
}

func assignError(errMsg *StringView, err error) ErrorCode {
	errMsg.Assign(err.Error())
	if errors.Is(err, apperrors.ErrNotImplemented) {
		return ErrorCodeNotImplemented
	}
	return ErrorCodeException
}

// catchAsCode runs fn, converting any panic into an error code and a
// truncated message in the caller's error buffer.
func catchAsCode(errMsg *StringView, fn func() ErrorCode) (code ErrorCode) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				errMsg.Assign(err.Error())
				code = ErrorCodeException
				return
			}
			errMsg.Assign(UnknownPanicMessage)
			code = ErrorCodeUnknown
		}
	}()
	return fn()
}
