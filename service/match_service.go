package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"fenrir/domain/match"
	"fenrir/domain/order"
	"fenrir/infra/kafka"
	"fenrir/infra/metrics"
	"fenrir/infra/outbox"
	"fenrir/infra/sequence"
	"fenrir/infra/state"
	"fenrir/infra/wal/journal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// StatusProducer publishes order status changes. Failures are logged and
// dropped; the status feed is advisory.
type StatusProducer interface {
	SendStatus(ctx context.Context, orderHash common.Hash, update kafka.StatusUpdate) error
}

/*
MatchService is the ONLY write entry point into the system.

All coordination between:
- domain (match, order)
- infra (state, ledger, journal, outbox)
happens here.
*/

type MatchService struct {
	store    state.Store
	resolver *match.Resolver
	settler  *match.Settler
	verifier SignatureVerifier

	journal  *journal.WAL
	seq      *sequence.Sequencer
	outbox   *outbox.Outbox
	producer StatusProducer

	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	// Striped by the leading byte of the order hash. Both hashes are
	// locked in sorted stripe order so concurrent matches sharing an
	// order cannot deadlock.
	locks [256]sync.Mutex
}

// Config wires the service dependencies. Store, Ledger and FeeAssetData
// are required; Journal, Outbox, Producer and Metrics may be nil, which
// disables the corresponding side effect.
type Config struct {
	Store        state.Store
	Ledger       match.Transferor
	FeeAssetData []byte

	Verifier  SignatureVerifier
	Journal   *journal.WAL
	Sequencer *sequence.Sequencer
	Outbox    *outbox.Outbox
	Producer  StatusProducer
	Log       *logrus.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func NewMatchService(cfg Config) *MatchService {
	if cfg.Verifier == nil {
		cfg.Verifier = EcdsaVerifier{}
	}
	if cfg.Sequencer == nil {
		cfg.Sequencer = sequence.New(0)
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &MatchService{
		store:    cfg.Store,
		resolver: match.NewResolver(cfg.Store, cfg.Now),
		settler:  match.NewSettler(cfg.Ledger, cfg.Store, cfg.FeeAssetData),
		verifier: cfg.Verifier,
		journal:  cfg.Journal,
		seq:      cfg.Sequencer,
		outbox:   cfg.Outbox,
		producer: cfg.Producer,
		log:      cfg.Log,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
}

//
// ──────────────────────────────────────────────────────────
// Results
// ──────────────────────────────────────────────────────────
//

// OrderInfo is the queryable view of one order's fill progress.
type OrderInfo struct {
	OrderHash              common.Hash
	Status                 order.Status
	FilledTakerAssetAmount *big.Int
}

// MatchResult reports the outcome of one match attempt. Results and
// Settlement are set only when Status is StatusSuccess.
type MatchResult struct {
	Status     match.Status
	Left       OrderInfo
	Right      OrderInfo
	Results    *match.MatchedFillResults
	Settlement *match.Settlement
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// MatchOrders validates, matches and settles two complementary signed
// orders on behalf of taker. Rejections a caller can provoke come back as
// a MatchResult status; a non-nil error means an internal failure and no
// state change.
func (s *MatchService) MatchOrders(
	ctx context.Context,
	left, right *order.SignedOrder,
	taker common.Address,
) (*MatchResult, error) {
	start := s.now()

	leftHash := left.Hash()
	rightHash := right.Hash()

	res := &MatchResult{
		Left:  OrderInfo{OrderHash: leftHash, FilledTakerAssetAmount: new(big.Int)},
		Right: OrderInfo{OrderHash: rightHash, FilledTakerAssetAmount: new(big.Int)},
	}

	if !s.verifier.Verify(leftHash, left.Maker, left.Signature) ||
		!s.verifier.Verify(rightHash, right.Maker, right.Signature) {
		return s.reject(res, match.StatusInvalidSignature, start), nil
	}

	unlock := s.lockPair(leftHash, rightHash)
	defer unlock()

	leftStatus, _, leftFilled, err := s.resolver.Resolve(&left.Order)
	if err != nil {
		return nil, fmt.Errorf("resolve left order: %w", err)
	}
	rightStatus, _, rightFilled, err := s.resolver.Resolve(&right.Order)
	if err != nil {
		return nil, fmt.Errorf("resolve right order: %w", err)
	}
	res.Left.Status, res.Left.FilledTakerAssetAmount = leftStatus, leftFilled
	res.Right.Status, res.Right.FilledTakerAssetAmount = rightStatus, rightFilled

	if !leftStatus.Fillable() || !rightStatus.Fillable() {
		return s.reject(res, match.StatusOrderUnfillable, start), nil
	}
	if restricted(&left.Order, taker) || restricted(&right.Order, taker) {
		return s.reject(res, match.StatusInvalidTaker, start), nil
	}

	// Non-complementary assets and crossed prices are caller bugs, not
	// order states. They surface as errors.
	if err := match.ValidateMatch(&left.Order, &right.Order); err != nil {
		return nil, err
	}

	status, matched, err := match.ComputeMatchedFillResults(
		&left.Order, &right.Order,
		leftStatus, rightStatus,
		leftFilled, rightFilled,
	)
	if err != nil {
		return nil, s.abort(err)
	}
	if status != match.StatusSuccess {
		if status == match.StatusRoundingErrorTooLarge && s.metrics != nil {
			s.metrics.RoundingRejections.Inc()
		}
		return s.reject(res, status, start), nil
	}

	settlement, err := s.settler.Settle(
		&left.Order, &right.Order,
		leftHash, rightHash,
		leftFilled, rightFilled,
		matched, taker,
	)
	if err != nil {
		return nil, s.abort(err)
	}

	s.recordSettlement(ctx, settlement)

	res.Status = match.StatusSuccess
	res.Results = matched
	res.Settlement = settlement
	res.Left.FilledTakerAssetAmount = settlement.LeftFilledTotal
	res.Right.FilledTakerAssetAmount = settlement.RightFilledTotal
	res.Left.Status = filledStatus(&left.Order, settlement.LeftFilledTotal)
	res.Right.Status = filledStatus(&right.Order, settlement.RightFilledTotal)

	if s.metrics != nil {
		volume, _ := new(big.Float).SetInt(settlement.Results.Left.TakerAssetFilledAmount).Float64()
		s.metrics.RecordSettlement(volume)
		s.metrics.RecordMatch(res.Status.String(), s.now().Sub(start).Seconds())
	}
	s.log.WithFields(logrus.Fields{
		"left":  leftHash.Hex(),
		"right": rightHash.Hex(),
		"taker": taker.Hex(),
	}).Info("match settled")

	s.publishStatus(ctx, res.Left)
	s.publishStatus(ctx, res.Right)

	return res, nil
}

// CancelOrder marks an order permanently unfillable. Only the maker may
// cancel, and the request must carry a valid maker signature over the
// order hash.
func (s *MatchService) CancelOrder(ctx context.Context, o *order.SignedOrder) (*OrderInfo, error) {
	hash := o.Hash()
	if !s.verifier.Verify(hash, o.Maker, o.Signature) {
		return nil, fmt.Errorf("cancel %s: signature does not recover maker", hash.Hex())
	}

	unlock := s.lockPair(hash, hash)
	defer unlock()

	if err := s.store.Cancel(hash); err != nil {
		return nil, fmt.Errorf("cancel %s: %w", hash.Hex(), err)
	}
	if s.metrics != nil {
		s.metrics.CancelsTotal.Inc()
	}

	st, err := s.store.FillState(hash)
	if err != nil {
		return nil, err
	}
	info := OrderInfo{
		OrderHash:              hash,
		Status:                 order.StatusCancelled,
		FilledTakerAssetAmount: st.FilledTakerAssetAmount,
	}
	s.publishStatus(ctx, info)
	return &info, nil
}

//
// ──────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────
//

// GetOrderInfo resolves the current status and cumulative fill of one
// order without taking the match path.
func (s *MatchService) GetOrderInfo(o *order.Order) (*OrderInfo, error) {
	status, hash, filled, err := s.resolver.Resolve(o)
	if err != nil {
		return nil, err
	}
	return &OrderInfo{
		OrderHash:              hash,
		Status:                 status,
		FilledTakerAssetAmount: filled,
	}, nil
}

//
// ──────────────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────────────
//

func (s *MatchService) lockPair(a, b common.Hash) func() {
	i, j := int(a[0]), int(b[0])
	if i > j {
		i, j = j, i
	}
	s.locks[i].Lock()
	if j != i {
		s.locks[j].Lock()
	}
	return func() {
		if j != i {
			s.locks[j].Unlock()
		}
		s.locks[i].Unlock()
	}
}

// recordSettlement journals the settlement and queues it for broadcast.
// The ledger and fill state have already committed, so failures here are
// logged loudly rather than unwound.
func (s *MatchService) recordSettlement(ctx context.Context, st *match.Settlement) {
	payload := journal.EncodeSettlement(st)

	if s.journal != nil {
		appendStart := s.now()
		rec := journal.NewRecord(journal.RecordSettlement, s.seq.Next(), payload)
		if err := s.journal.Append(rec); err != nil {
			s.log.WithError(err).Error("settlement journal append failed")
		} else if s.metrics != nil {
			s.metrics.JournalAppendLag.Observe(s.now().Sub(appendStart).Seconds())
		}
	}
	if s.outbox != nil {
		if _, err := s.outbox.Put(payload); err != nil {
			s.log.WithError(err).Error("settlement outbox put failed")
		}
	}
}

func (s *MatchService) publishStatus(ctx context.Context, info OrderInfo) {
	if s.producer == nil {
		return
	}
	err := s.producer.SendStatus(ctx, info.OrderHash, kafka.StatusUpdate{
		OrderHash:    info.OrderHash.Hex(),
		Status:       info.Status.String(),
		FilledAmount: info.FilledTakerAssetAmount.String(),
		UpdatedAt:    s.now().Unix(),
	})
	if err != nil {
		s.log.WithError(err).Warn("status publish failed")
	}
}

func (s *MatchService) reject(res *MatchResult, status match.Status, start time.Time) *MatchResult {
	res.Status = status
	if s.metrics != nil {
		s.metrics.RecordMatch(status.String(), s.now().Sub(start).Seconds())
	}
	return res
}

func (s *MatchService) abort(err error) error {
	if match.IsInvariant(err) && s.metrics != nil {
		s.metrics.InvariantAborts.Inc()
	}
	return err
}

func restricted(o *order.Order, taker common.Address) bool {
	return o.Taker != (common.Address{}) && o.Taker != taker
}

func filledStatus(o *order.Order, filled *big.Int) order.Status {
	if filled.Cmp(o.TakerAssetAmount) >= 0 {
		return order.StatusFullyFilled
	}
	return order.StatusFillable
}
