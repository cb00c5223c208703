package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidPointSize     ErrorCode = 103
	ErrCodeInvalidThreshold     ErrorCode = 104
	ErrCodeInvalidMultiplier    ErrorCode = 105
	ErrCodeEmptyBarSeries       ErrorCode = 106
	ErrCodeInsufficientBars     ErrorCode = 107
	ErrCodeInvalidType          ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidExitMode      ErrorCode = 110
	ErrCodeInvalidStartingCash  ErrorCode = 111
	ErrCodeInvalidStake         ErrorCode = 112

	// Data integrity errors (200-249)
	ErrCodeNonIncreasingTime ErrorCode = 200
	ErrCodeInvalidBarRange   ErrorCode = 201
	ErrCodeNonPositivePrice  ErrorCode = 202
	ErrCodeNegativeVolume    ErrorCode = 203
	ErrCodeNonFiniteValue    ErrorCode = 204

	// Data source errors (250-299)
	ErrCodeDataNotFound          ErrorCode = 250
	ErrCodeQueryFailed           ErrorCode = 251
	ErrCodeDataSourceUnavailable ErrorCode = 252
	ErrCodeUnsupportedFormat     ErrorCode = 253

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeSeriesNotFound         ErrorCode = 302

	// Position and ledger errors (500-599)
	ErrCodePositionNotFlat   ErrorCode = 500
	ErrCodePositionNotOpen   ErrorCode = 501
	ErrCodeOverlappingTrade  ErrorCode = 502
	ErrCodeLedgerWriteFailed ErrorCode = 503

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError   ErrorCode = 600
	ErrCodeBacktestNoDataPaths   ErrorCode = 601
	ErrCodeBacktestNoResultsDir  ErrorCode = 602
	ErrCodeBacktestNoDatasource  ErrorCode = 603
	ErrCodeResultsWriteFailed    ErrorCode = 604
	ErrCodeBacktestNoConfigs     ErrorCode = 605
	ErrCodeBacktestInvalidWorker ErrorCode = 606
	ErrCodeRunStopped            ErrorCode = 607
	ErrCodeRunCancelled          ErrorCode = 608
)

// IsConfiguration reports whether the code belongs to the configuration range.
func (c ErrorCode) IsConfiguration() bool {
	return c >= 100 && c < 200
}

// IsDataIntegrity reports whether the code belongs to the data integrity range.
func (c ErrorCode) IsDataIntegrity() bool {
	return c >= 200 && c < 250
}
