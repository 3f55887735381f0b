package container

import "strings"

// ErrorCode classifies an InjectionError.
type ErrorCode string

const (
	CodeInvalidToken                    ErrorCode = "INVALID_TOKEN"
	CodeTokenAlreadyRegistered          ErrorCode = "TOKEN_ALREADY_REGISTERED"
	CodeTokenNotRegistered              ErrorCode = "TOKEN_NOT_REGISTERED"
	CodeCreationMethodMissing           ErrorCode = "CREATION_METHOD_MISSING"
	CodeCreationMultipleMethod          ErrorCode = "CREATION_MULTIPLE_METHOD"
	CodeCreationMethodUseClassInvalid   ErrorCode = "CREATION_METHOD_USE_CLASS_INVALID"
	CodeCreationMethodUseFactoryInvalid ErrorCode = "CREATION_METHOD_USE_FACTORY_INVALID"
	CodeClassConstructorInvalid         ErrorCode = "CLASS_CONSTRUCTOR_INVALID"
	CodeCyclicDependency                ErrorCode = "CYCLIC_DEPENDENCY"
	CodeInvalidInjectionTarget          ErrorCode = "INVALID_INJECTION_TARGET"
	CodeInvalidScope                    ErrorCode = "INVALID_SCOPE"
)

// InjectionError is the single error type raised by the container.
// errors.Is matches two InjectionErrors by Code, so the Err* sentinels below
// can be used to test the kind of any returned error.
type InjectionError struct {
	Code    ErrorCode
	Message string
	// Token is the display name of the token involved, if any.
	Token string
	// Path lists the resolution chain for CodeCyclicDependency.
	Path []string
}

func (e *InjectionError) Error() string {
	msg := "container: " + e.Message
	if len(e.Path) > 0 {
		msg += " (" + strings.Join(e.Path, " -> ") + ")"
	}
	return msg
}

// Is implements errors.Is by comparing codes.
func (e *InjectionError) Is(target error) bool {
	t, ok := target.(*InjectionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidToken                    = &InjectionError{Code: CodeInvalidToken, Message: "invalid token"}
	ErrTokenAlreadyRegistered          = &InjectionError{Code: CodeTokenAlreadyRegistered, Message: "token already registered"}
	ErrTokenNotRegistered              = &InjectionError{Code: CodeTokenNotRegistered, Message: "token not registered"}
	ErrCreationMethodMissing           = &InjectionError{Code: CodeCreationMethodMissing, Message: "creation method missing"}
	ErrCreationMultipleMethod          = &InjectionError{Code: CodeCreationMultipleMethod, Message: "multiple creation methods"}
	ErrCreationMethodUseClassInvalid   = &InjectionError{Code: CodeCreationMethodUseClassInvalid, Message: "useClass is not a class"}
	ErrCreationMethodUseFactoryInvalid = &InjectionError{Code: CodeCreationMethodUseFactoryInvalid, Message: "useFactory is not a factory"}
	ErrClassConstructorInvalid         = &InjectionError{Code: CodeClassConstructorInvalid, Message: "class constructor expected"}
	ErrCyclicDependency                = &InjectionError{Code: CodeCyclicDependency, Message: "cyclic dependency"}
	ErrInvalidInjectionTarget          = &InjectionError{Code: CodeInvalidInjectionTarget, Message: "invalid injection target"}
	ErrInvalidScope                    = &InjectionError{Code: CodeInvalidScope, Message: "invalid scope"}

	// ErrResolveExpectedClass is raised when Resolve receives something that
	// is neither a registered token nor a class.
	ErrResolveExpectedClass = ErrClassConstructorInvalid
)

func newError(code ErrorCode, token Token, message string) *InjectionError {
	e := &InjectionError{Code: code, Message: message}
	if token != nil {
		e.Token = TokenName(token)
	}
	return e
}
