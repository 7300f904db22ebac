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
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// DefaultMintingFee is 0.001 AVAX expressed in wei.  It is used when the
// contract's fee cannot be read.
var DefaultMintingFee = big.NewInt(params.Ether / 1000)

// Errors for fee parsing.
var (
	ErrNegativeFee = errors.New("forge: fee cannot be negative")
	ErrInvalidFee  = errors.New("forge: invalid ether amount")
)

// Gas estimates are padded by gasPadNum/gasPadDen.
const (
	gasPadNum = 3
	gasPadDen = 2
)

// PadGasLimit inflates a gas estimate by 50%, rounding down.
func PadGasLimit(estimate uint64) uint64 {
	return estimate * gasPadNum / gasPadDen
}

// Quote is the value and gas a forge transaction is sent with.
type Quote struct {
	Fee      *big.Int `json:"fee"`
	GasLimit uint64   `json:"gasLimit"`

	// Fallback is set when the contract's fee could not be read and
	// DefaultMintingFee was used.
	Fallback bool `json:"fallback,omitempty"`
}

// ParseEther converts a decimal ether amount such as "0.001" to wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidFee
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeFee
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 18 {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", ErrInvalidFee, s)
	}
	digits := whole + frac + strings.Repeat("0", 18-len(frac))
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFee, s)
	}
	return wei, nil
}

// FormatEther renders a wei amount as a decimal ether string without
// trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	s := new(big.Int).Abs(wei).String()
	if len(s) <= 18 {
		s = strings.Repeat("0", 19-len(s)) + s
	}
	whole, frac := s[:len(s)-18], strings.TrimRight(s[len(s)-18:], "0")
	if neg {
		whole = "-" + whole
	}
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
