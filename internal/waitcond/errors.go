package waitcond

import "errors"

// Ошибки супервизора.
var (
	// ErrUnknownToken — для токена не заведено условие.
	ErrUnknownToken = errors.New("unknown completion token")

	// ErrAlreadyExpected — для токена уже заведено условие.
	ErrAlreadyExpected = errors.New("condition already expected for token")

	// ErrConditionClosed — условие уже разрешено, сигнал не принимается.
	ErrConditionClosed = errors.New("condition already resolved")

	// ErrInvalidSignal — документ сигнала некорректен.
	ErrInvalidSignal = errors.New("invalid signal document")
)
