// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package forge

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/blacksmith-forge/blacksmith/ipfs"
	"github.com/ethereum/go-ethereum/rpc"
)

// Errors returned by local checks.
var (
	ErrInvalidWeaponType     = errors.New("forge: invalid weapon type")
	ErrInvalidTier           = errors.New("forge: invalid weapon tier")
	ErrCooldown              = errors.New("forge: cooldown active")
	ErrInFlight              = errors.New("forge: transaction already in progress")
	ErrLevelTooLow           = errors.New("forge: LEVEL_TOO_LOW")
	ErrIllegalTransition     = errors.New("forge: illegal state transition")
	ErrCollectionUnavailable = errors.New("forge: no weapon of the collection could be loaded")
	ErrTxFailed              = errors.New("forge: transaction reverted")
	ErrNoSigner              = errors.New("forge: backend has no signing account")
)

// ErrorType is the closed taxonomy errors are mapped into for display.
type ErrorType string

const (
	NetworkError    ErrorType = "NETWORK_ERROR"
	ContractError   ErrorType = "CONTRACT_ERROR"
	WalletError     ErrorType = "WALLET_ERROR"
	IPFSError       ErrorType = "IPFS_ERROR"
	ValidationError ErrorType = "VALIDATION_ERROR"
	UnknownError    ErrorType = "UNKNOWN_ERROR"
)

// Codes attached to classified errors.
const (
	CodeUserRejected      = "USER_REJECTED"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeNonceConflict     = "NONCE_CONFLICT"
)

// userRejectedCode is the EIP-1193 error code of a rejected request.
const userRejectedCode = 4001

// contractErrors maps revert reasons to their user-facing messages.
var contractErrors = []struct{ code, message string }{
	{"ALREADY_REGISTERED", "You are already registered as a blacksmith"},
	{"NOT_REGISTERED", "You must register as a blacksmith first"},
	{"LEVEL_TOO_LOW", "Your level is too low for this weapon tier"},
	{"INVALID_TIER", "Invalid weapon tier selected"},
	{"INVALID_WEAPON_TYPE", "Invalid weapon type selected"},
}

// GameError is a classified error.
type GameError struct {
	Type      ErrorType      `json:"type"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
	Err       error          `json:"-"`
}

func (e *GameError) Error() string {
	if e.Err != nil {
		return string(e.Type) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Type) + ": " + e.Message
}

func (e *GameError) Unwrap() error { return e.Err }

// Severity is "warning" for storage problems, which never stop a forge,
// and "error" for everything else.
func (e *GameError) Severity() string {
	if e.Type == IPFSError {
		return "warning"
	}
	return "error"
}

// Classify maps a raw error from the wallet, chain or storage layers into
// the error taxonomy.  Already classified errors are returned unchanged.
func Classify(err error, ctx map[string]any) *GameError {
	if err == nil {
		return nil
	}
	var ge *GameError
	if errors.As(err, &ge) {
		return ge
	}
	newErr := func(t ErrorType, code, msg string, retryable bool) *GameError {
		return &GameError{Type: t, Code: code, Message: msg, Retryable: retryable, Timestamp: time.Now(), Context: ctx, Err: err}
	}
	msg := err.Error()

	switch {
	case errors.Is(err, ErrCooldown):
		return newErr(ValidationError, "", "Please wait a moment before forging again", true)
	case errors.Is(err, ErrInFlight):
		return newErr(ValidationError, "", "A forge transaction is already in progress", false)
	case errors.Is(err, ErrInvalidWeaponType):
		return newErr(ValidationError, "INVALID_WEAPON_TYPE", "Invalid weapon type selected", false)
	case errors.Is(err, ErrInvalidTier):
		return newErr(ValidationError, "INVALID_TIER", "Invalid weapon tier selected", false)
	case errors.Is(err, ErrInvalidMetadata):
		return newErr(ValidationError, "", "Metadata requires name, description and attributes", false)
	}

	var retrieval *ipfs.RetrievalError
	if errors.As(err, &retrieval) || errors.Is(err, ipfs.ErrPin) {
		return newErr(IPFSError, "", "Failed to upload to IPFS. Your NFT will be created with temporary metadata.", true)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode || containsFold(msg, "rejected") || containsFold(msg, "denied") {
		return newErr(WalletError, CodeUserRejected, "Transaction was rejected by user", false)
	}
	if containsFold(msg, "insufficient funds") || strings.Contains(msg, "INSUFFICIENT_FEE") {
		return newErr(WalletError, CodeInsufficientFunds, "Insufficient AVAX balance for transaction", false)
	}
	for _, ce := range contractErrors {
		if strings.Contains(msg, ce.code) {
			return newErr(ContractError, ce.code, ce.message, false)
		}
	}
	if errors.Is(err, ErrTxFailed) {
		return newErr(ContractError, "", "The forge transaction was reverted on-chain", false)
	}
	if containsFold(msg, "nonce too low") || containsFold(msg, "replacement transaction underpriced") || containsFold(msg, "already known") {
		return newErr(NetworkError, CodeNonceConflict, "Another transaction from this account is pending. Please try again.", true)
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) ||
		containsFold(msg, "network") || containsFold(msg, "timeout") ||
		containsFold(msg, "connection refused") || containsFold(msg, "fetch") {
		return newErr(NetworkError, "", "Network connection error. Please check your internet connection.", true)
	}
	if strings.Contains(msg, "IPFS") || strings.Contains(msg, "Pinata") {
		return newErr(IPFSError, "", "Failed to upload to IPFS. Your NFT will be created with temporary metadata.", true)
	}
	return newErr(UnknownError, "", msg, false)
}

// Presentation is the user-facing rendering of a GameError.
type Presentation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// Describe returns the title, message and suggested action for e.
func Describe(e *GameError) Presentation {
	switch e.Type {
	case WalletError:
		if e.Code == CodeUserRejected {
			return Presentation{"Transaction Cancelled", "You cancelled the transaction in your wallet.", "Try again when ready"}
		}
		return Presentation{"Wallet Error", e.Message, "Check your wallet balance and try again"}
	case ContractError:
		return Presentation{"Smart Contract Error", e.Message, "Please check the requirements and try again"}
	case NetworkError:
		return Presentation{"Network Error", e.Message, "Check your connection and refresh the page"}
	case IPFSError:
		return Presentation{"Storage Warning", e.Message, "Your NFT will still be created successfully"}
	case ValidationError:
		return Presentation{"Validation Error", e.Message, "Please correct the input and try again"}
	default:
		return Presentation{"Unexpected Error", e.Message, "Please try again or contact support if the issue persists"}
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
