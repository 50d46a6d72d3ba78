package reason

import "strings"

// ClassifiedFailure is a provider failure normalized onto a stable code.
type ClassifiedFailure struct {
	Code   Code
	Detail string
}

const (
	insufficientFundsDetail    = "Wallet does not have enough balance to complete this action."
	tokenAccountNotFoundDetail = "Required token account was not found or is not initialized."
)

// Classify maps free-text provider/RPC error messages to known categories via
// case-insensitive substring matching, falling back to the caller-supplied
// code and detail. The same underlying condition yields the same code no
// matter which stage produced the error.
func Classify(err error, fallbackCode Code, fallbackDetail string) ClassifiedFailure {
	var text string
	if err != nil {
		text = err.Error()
	}
	normalized := strings.ToLower(text)

	switch {
	case strings.Contains(normalized, "insufficient funds"),
		strings.Contains(normalized, "insufficient lamports"),
		strings.Contains(normalized, "attempt to debit an account but found no record of a prior credit"):
		return ClassifiedFailure{Code: InsufficientFunds, Detail: insufficientFundsDetail}

	case strings.Contains(normalized, "accountnotfound"),
		strings.Contains(normalized, "invalid account data for instruction"),
		strings.Contains(normalized, "token account not found"),
		strings.Contains(normalized, "could not find account"):
		return ClassifiedFailure{Code: TokenAccountNotFound, Detail: tokenAccountNotFoundDetail}
	}

	return ClassifiedFailure{Code: fallbackCode, Detail: fallbackDetail}
}
