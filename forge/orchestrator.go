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
	"fmt"
	"math/big"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Defaults of the forge flow.
const (
	DefaultCooldown       = 3 * time.Second
	DefaultRefetchDelay   = 2 * time.Second
	DefaultConfirmTimeout = 5 * time.Minute
)

// State is the stage of the forge flow.
type State uint8

const (
	StateIdle State = iota
	StatePreparing
	StateSubmitted
	StateConfirming
	StateSuccess
	StateError
)

var stateNames = [...]string{"idle", "preparing", "submitted", "confirming", "success", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// transitions lists the legal successors of every state.  A new forge
// starts over from idle regardless of where the previous one ended.
var transitions = map[State][]State{
	StateIdle:       {StatePreparing, StateError},
	StatePreparing:  {StateSubmitted, StateError},
	StateSubmitted:  {StateConfirming, StateError},
	StateConfirming: {StateSuccess, StateError},
	StateSuccess:    {StateIdle},
	StateError:      {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ForgeRequest is the user's choice of weapon.
type ForgeRequest struct {
	WeaponType WeaponType `json:"weaponType"`
	Tier       uint8      `json:"tier"`
}

// ForgeResult describes a confirmed forge.
type ForgeResult struct {
	ID          string      `json:"id"`
	Account     string      `json:"account"`
	TxHash      common.Hash `json:"txHash"`
	MetadataRef string      `json:"metadataRef"`
	ImageRef    string      `json:"imageRef,omitempty"`
	Metadata    *Metadata   `json:"metadata"`
	Stats       Stats       `json:"stats"`
	Rarity      Rarity      `json:"rarity"`
	Fee         *big.Int    `json:"fee"`
	GasLimit    uint64      `json:"gasLimit"`
	Nonce       uint64      `json:"nonce"`
	Receipt     *Receipt    `json:"receipt"`

	// Warnings collects non-fatal storage failures.
	Warnings []*GameError `json:"warnings,omitempty"`
}

// Event reports a state transition of a forge.
type Event struct {
	ForgeID     string
	Account     common.Address
	Request     ForgeRequest
	From, To    State
	At          time.Time
	TxHash      common.Hash
	MetadataRef string
	ImageRef    string
	Err         *GameError
}

// Observer is notified of every transition, synchronously and in order.
type Observer interface {
	OnForgeEvent(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnForgeEvent(ev Event) { f(ev) }

// ForgerOptions configures a Forger.  Zero values select the defaults.
type ForgerOptions struct {
	Cooldown       time.Duration
	RefetchDelay   time.Duration
	ConfirmTimeout time.Duration

	// FallbackFee is sent when the contract fee cannot be read.
	FallbackFee *big.Int

	// Image and metadata settings.
	ImageSize    int
	ImageGateway string
	ExternalURL  string
	ChainName    string

	// Refetch runs once, RefetchDelay after a confirmed forge, typically
	// Service.RefreshPlayer.
	Refetch func(ctx context.Context, account common.Address)

	Observers []Observer
	Clock     clockwork.Clock
	Rand      *rand.Rand
	Logger    log.Logger
}

// Forger runs the forge flow: prepare artwork and metadata, submit the
// mint transaction and wait for its confirmation.  One forge runs at a time
// and a new one is refused within the cooldown of the last submission.
type Forger struct {
	chain    ChainBackend
	uploader Uploader
	opts     ForgerOptions
	clock    clockwork.Clock
	log      log.Logger

	mu         sync.Mutex
	busy       bool
	lastSubmit time.Time
	state      State
	rng        *rand.Rand // guarded by mu
}

// NewForger creates a forger.  A nil uploader disables uploads; every forge
// then uses placeholder artwork and a fallback metadata reference.
func NewForger(chain ChainBackend, uploader Uploader, opts ForgerOptions) *Forger {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.RefetchDelay <= 0 {
		opts.RefetchDelay = DefaultRefetchDelay
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.FallbackFee == nil {
		opts.FallbackFee = DefaultMintingFee
	}
	if opts.ImageSize <= 0 {
		opts.ImageSize = DefaultImageSize
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Clock.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Root()
	}
	return &Forger{
		chain:    chain,
		uploader: uploader,
		opts:     opts,
		clock:    opts.Clock,
		log:      opts.Logger.With("component", "forger"),
		rng:      opts.Rand,
	}
}

// State returns the state of the current or last forge.
func (f *Forger) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Busy reports whether a forge is in flight.
func (f *Forger) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Account returns the account forges are sent from.
func (f *Forger) Account() common.Address { return f.chain.Account() }

// run carries the per-forge values through the flow.
type run struct {
	id      string
	account common.Address
	req     ForgeRequest
	imgRef  string
	metaRef string
	tx      common.Hash
}

// Forge runs one forge.  Errors are returned as *GameError.
func (f *Forger) Forge(ctx context.Context, req ForgeRequest) (*ForgeResult, error) {
	if err := f.acquire(); err != nil {
		return nil, Classify(err, map[string]any{"weaponType": req.WeaponType, "tier": req.Tier})
	}
	defer f.release()

	r := &run{id: uuid.NewString(), account: f.chain.Account(), req: req}
	f.transition(r, StateIdle, nil)

	res, err := f.forge(ctx, r)
	if err != nil {
		ge := Classify(err, map[string]any{"weaponType": req.WeaponType, "tier": req.Tier, "forge": r.id})
		f.log.Warn("Forge failed", "id", r.id, "type", ge.Type, "err", err)
		f.transition(r, StateError, ge)
		return nil, ge
	}
	return res, nil
}

// acquire applies the cooldown and in-flight gates.
func (f *Forger) acquire() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.lastSubmit.IsZero() {
		if wait := f.opts.Cooldown - f.clock.Since(f.lastSubmit); wait > 0 {
			return fmt.Errorf("%w: retry in %v", ErrCooldown, wait.Round(time.Millisecond))
		}
	}
	if f.busy {
		return ErrInFlight
	}
	f.busy = true
	return nil
}

func (f *Forger) release() {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
}

func (f *Forger) forge(ctx context.Context, r *run) (*ForgeResult, error) {
	if err := f.transition(r, StatePreparing, nil); err != nil {
		return nil, err
	}
	req := r.req
	def, err := Lookup(req.WeaponType, req.Tier)
	if err != nil {
		return nil, err
	}
	if r.account == (common.Address{}) {
		return nil, ErrNoSigner
	}
	ok, err := f.chain.CanCraftTier(ctx, r.account, req.Tier)
	if err != nil {
		return nil, fmt.Errorf("forge: tier check failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: tier %d", ErrLevelTooLow, req.Tier)
	}

	f.mu.Lock()
	stats := PerturbStats(def.BaseStats, f.rng)
	rarity := RollRarity(f.rng)
	seed := f.rng.Int63()
	suffix := strconv.FormatInt(f.rng.Int63(), 36)
	f.mu.Unlock()

	now := f.clock.Now()
	tempID := fmt.Sprintf("%s%d", TempPrefix, now.UnixMilli())
	res := &ForgeResult{ID: r.id, Account: r.account.Hex(), Stats: stats, Rarity: rarity}

	// Artwork, best effort.
	r.imgRef = f.uploadImage(ctx, res, ImageConfig{
		Width:      f.opts.ImageSize,
		Height:     f.opts.ImageSize,
		WeaponType: req.WeaponType,
		Tier:       req.Tier,
		Rarity:     rarity,
		Stats:      stats,
	}, tempID, seed, now)

	meta, err := GenerateMetadata(MetadataParams{
		WeaponType:   req.WeaponType,
		Tier:         req.Tier,
		Rarity:       rarity,
		Stats:        stats,
		TokenID:      tempID,
		CraftedBy:    r.account.Hex(),
		ImageHash:    r.imgRef,
		ImageGateway: f.opts.ImageGateway,
		ExternalURL:  f.opts.ExternalURL,
		ChainName:    f.opts.ChainName,
	})
	if err != nil {
		return nil, err
	}
	res.Metadata = meta

	// Metadata, best effort.
	r.metaRef = fmt.Sprintf("%s%d_%s", FallbackPrefix, now.UnixMilli(), suffix[:min(len(suffix), 6)])
	if f.uploader != nil {
		pin, err := f.uploader.UploadMetadata(ctx, meta)
		if err != nil {
			ge := Classify(err, map[string]any{"stage": "metadata"})
			res.Warnings = append(res.Warnings, ge)
			f.log.Warn("Metadata upload failed, using fallback reference", "ref", r.metaRef, "err", err)
		} else {
			r.metaRef = pin.IpfsHash
		}
	}
	res.MetadataRef, res.ImageRef = r.metaRef, r.imgRef

	// Transaction parameters.
	q, err := f.quote(ctx, r.account)
	if err != nil {
		return nil, err
	}
	nonce, err := f.chain.PendingNonce(ctx, r.account)
	if err != nil {
		return nil, fmt.Errorf("forge: nonce lookup failed: %w", err)
	}
	fee := q.Fee
	res.Fee, res.GasLimit, res.Nonce = fee, q.GasLimit, nonce

	tx, err := f.chain.ForgeWeapon(ctx, ForgeCall{
		WeaponType:  req.WeaponType,
		Tier:        req.Tier,
		MetadataRef: r.metaRef,
		Value:       fee,
		GasLimit:    res.GasLimit,
		Nonce:       nonce,
	})
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.lastSubmit = f.clock.Now()
	f.mu.Unlock()

	r.tx, res.TxHash = tx.Hash(), tx.Hash()
	f.log.Info("Forge transaction submitted", "id", r.id, "tx", r.tx, "ref", r.metaRef, "fee", FormatEther(fee))
	if err := f.transition(r, StateSubmitted, nil); err != nil {
		return nil, err
	}
	if err := f.transition(r, StateConfirming, nil); err != nil {
		return nil, err
	}

	// The transaction is out; confirmation outlives the caller's context.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.ConfirmTimeout)
	defer cancel()
	receipt, err := f.chain.WaitMined(waitCtx, tx)
	if err != nil {
		return nil, fmt.Errorf("forge: waiting for %s: %w", r.tx.Hex(), err)
	}
	res.Receipt = receipt
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("%w: %s", ErrTxFailed, r.tx.Hex())
	}
	if err := f.transition(r, StateSuccess, nil); err != nil {
		return nil, err
	}
	f.log.Info("Weapon forged", "id", r.id, "tx", r.tx, "block", receipt.BlockNumber, "token", receipt.TokenID)

	if f.opts.Refetch != nil {
		account := r.account
		f.clock.AfterFunc(f.opts.RefetchDelay, func() {
			f.opts.Refetch(context.Background(), account)
		})
	}
	return res, nil
}

// Quote returns the fee and gas limit a forge by the forger's account
// would currently be sent with.
func (f *Forger) Quote(ctx context.Context) (*Quote, error) {
	return f.quote(ctx, f.chain.Account())
}

func (f *Forger) quote(ctx context.Context, account common.Address) (*Quote, error) {
	q := new(Quote)
	fee, err := f.chain.MintingFee(ctx)
	if err != nil {
		f.log.Warn("Failed to read minting fee, using default", "fee", FormatEther(f.opts.FallbackFee), "err", err)
		fee, q.Fallback = new(big.Int).Set(f.opts.FallbackFee), true
	}
	gas, err := f.chain.EstimateForgeGas(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("forge: gas estimation failed: %w", err)
	}
	q.Fee, q.GasLimit = fee, PadGasLimit(gas)
	return q, nil
}

// uploadImage renders and uploads the artwork and returns its reference,
// or "" when the placeholder image must be used.
func (f *Forger) uploadImage(ctx context.Context, res *ForgeResult, cfg ImageConfig, tempID string, seed int64, now time.Time) string {
	if f.uploader == nil {
		return ""
	}
	png, err := EncodePNG(RenderWeapon(cfg, rand.New(rand.NewSource(seed))))
	if err != nil {
		f.log.Warn("Failed to render weapon image", "err", err)
		return ""
	}
	pin, err := f.uploader.UploadImage(ctx, png, ImageFileName(cfg, now.UnixMilli()), ImageInfo{
		WeaponType: cfg.WeaponType,
		Tier:       cfg.Tier,
		Rarity:     cfg.Rarity,
		TokenID:    tempID,
	})
	if err != nil {
		res.Warnings = append(res.Warnings, Classify(err, map[string]any{"stage": "image"}))
		f.log.Warn("Image upload failed, using placeholder", "err", err)
		return ""
	}
	return pin.IpfsHash
}

// transition moves the flow to the given state and notifies observers.
// Moving to idle starts a new forge.
func (f *Forger) transition(r *run, to State, ge *GameError) error {
	f.mu.Lock()
	from := f.state
	if from != to && to != StateIdle && !canTransition(from, to) {
		f.mu.Unlock()
		return fmt.Errorf("%w: %v -> %v", ErrIllegalTransition, from, to)
	}
	f.state = to
	f.mu.Unlock()

	if to == StateIdle {
		return nil
	}
	ev := Event{
		ForgeID:     r.id,
		Account:     r.account,
		Request:     r.req,
		From:        from,
		To:          to,
		At:          f.clock.Now(),
		TxHash:      r.tx,
		MetadataRef: r.metaRef,
		ImageRef:    r.imgRef,
		Err:         ge,
	}
	for _, o := range f.opts.Observers {
		o.OnForgeEvent(ev)
	}
	return nil
}
