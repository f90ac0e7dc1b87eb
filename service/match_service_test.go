package service

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"fenrir/domain/match"
	"fenrir/domain/order"
	"fenrir/infra/kafka"
	"fenrir/infra/ledger"
	"fenrir/infra/outbox"
	"fenrir/infra/state"
	"fenrir/infra/wal/journal"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	assetA   = []byte{0xf4, 0x7d, 0x33, 0xfd, 0xaa, 0xaa, 0xaa, 0xaa}
	assetB   = []byte{0xf4, 0x7d, 0x33, 0xfd, 0xbb, 0xbb, 0xbb, 0xbb}
	feeAsset = []byte{0xf4, 0x7d, 0x33, 0xfd, 0xfe, 0xfe, 0xfe, 0xfe}

	exchange = common.HexToAddress("0x4444444444444444444444444444444444444444")
	taker    = common.HexToAddress("0x5555555555555555555555555555555555555555")
	feeRecip = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

type signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// sellOrder sells makerAmount of makerAsset for takerAmount of takerAsset.
func (s *signer) sellOrder(t *testing.T, makerAsset, takerAsset []byte, makerAmount, takerAmount int64) *order.SignedOrder {
	t.Helper()
	o := order.Order{
		Exchange:              exchange,
		Maker:                 s.addr,
		FeeRecipient:          feeRecip,
		MakerAssetData:        makerAsset,
		TakerAssetData:        takerAsset,
		MakerAssetAmount:      big.NewInt(makerAmount),
		TakerAssetAmount:      big.NewInt(takerAmount),
		Salt:                  big.NewInt(int64(len(makerAsset)) + makerAmount*31 + takerAmount),
		ExpirationTimeSeconds: uint64(fixedNow().Add(time.Hour).Unix()),
	}
	sig, err := crypto.Sign(o.Hash().Bytes(), s.key)
	require.NoError(t, err)
	return &order.SignedOrder{Order: o, Signature: sig}
}

func fixedNow() time.Time {
	return time.Unix(1_700_000_000, 0)
}

type fixture struct {
	svc     *MatchService
	ledger  *ledger.Ledger
	store   state.Store
	updates []kafka.StatusUpdate
}

func (f *fixture) SendStatus(_ context.Context, _ common.Hash, u kafka.StatusUpdate) error {
	f.updates = append(f.updates, u)
	return nil
}

func newFixture(t *testing.T, left, right *signer) *fixture {
	t.Helper()
	led := ledger.New()
	led.SetBalance(assetA, left.addr, big.NewInt(1_000_000))
	led.SetBalance(assetB, right.addr, big.NewInt(1_000_000))
	led.SetBalance(feeAsset, left.addr, big.NewInt(1_000_000))
	led.SetBalance(feeAsset, right.addr, big.NewInt(1_000_000))

	f := &fixture{ledger: led, store: state.NewMemory()}
	f.svc = NewMatchService(Config{
		Store:        f.store,
		Ledger:       led,
		FeeAssetData: feeAsset,
		Producer:     f,
		Now:          fixedNow,
	})
	return f
}

func TestMatchOrdersSettlesAndConservesAssets(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	// 5 A for 10 B against 10 B for 2 A: left fully fills, spread 3 A.
	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	res, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res.Status)

	require.Equal(t, int64(5), res.Results.Left.MakerAssetFilledAmount.Int64())
	require.Equal(t, int64(10), res.Results.Left.TakerAssetFilledAmount.Int64())
	require.Equal(t, int64(3), res.Results.LeftMakerAssetSpreadAmount.Int64())

	// Asset A: left maker paid 5, right maker got 2, taker got 3.
	require.Equal(t, int64(1_000_000-5), f.ledger.Balance(assetA, leftMaker.addr).Int64())
	require.Equal(t, int64(2), f.ledger.Balance(assetA, rightMaker.addr).Int64())
	require.Equal(t, int64(3), f.ledger.Balance(assetA, taker).Int64())

	// Asset B: right maker paid 10, all of it to the left maker.
	require.Equal(t, int64(1_000_000-10), f.ledger.Balance(assetB, rightMaker.addr).Int64())
	require.Equal(t, int64(10), f.ledger.Balance(assetB, leftMaker.addr).Int64())

	require.Equal(t, order.StatusFullyFilled, res.Left.Status)
	require.Equal(t, order.StatusFullyFilled, res.Right.Status)
}

func TestMatchOrdersPersistsCumulativeFills(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	// Left sells 100 A for 200 B; two successive right orders consume it.
	left := leftMaker.sellOrder(t, assetA, assetB, 100, 200)
	right1 := rightMaker.sellOrder(t, assetB, assetA, 40, 8)
	right2 := rightMaker.sellOrder(t, assetB, assetA, 300, 150)

	res1, err := f.svc.MatchOrders(context.Background(), left, right1, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res1.Status)
	require.Equal(t, order.StatusFillable, res1.Left.Status)

	res2, err := f.svc.MatchOrders(context.Background(), left, right2, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res2.Status)

	info, err := f.svc.GetOrderInfo(&left.Order)
	require.NoError(t, err)
	require.Equal(t, order.StatusFullyFilled, info.Status)
	require.Equal(t, int64(200), info.FilledTakerAssetAmount.Int64())

	// Fill totals never exceed the order amount.
	require.True(t, info.FilledTakerAssetAmount.Cmp(left.TakerAssetAmount) <= 0)
}

func TestMatchOrdersRejectsExhaustedOrder(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	res, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res.Status)

	// Replaying the same pair finds both orders exhausted; nothing moves.
	before := f.ledger.Balance(assetA, taker).Int64()
	res, err = f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusOrderUnfillable, res.Status)
	require.Equal(t, before, f.ledger.Balance(assetA, taker).Int64())
}

func TestMatchOrdersRejectsBadSignature(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)
	right.Signature[10] ^= 0xff

	res, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusInvalidSignature, res.Status)
	require.Equal(t, int64(0), f.ledger.Balance(assetA, taker).Int64())
}

func TestMatchOrdersHonorsTakerRestriction(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	left.Taker = common.HexToAddress("0x7777777777777777777777777777777777777777")
	sig, err := crypto.Sign(left.Hash().Bytes(), leftMaker.key)
	require.NoError(t, err)
	left.Signature = sig
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	res, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusInvalidTaker, res.Status)

	// The designated taker goes through.
	res, err = f.svc.MatchOrders(context.Background(), left, right, left.Taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res.Status)
}

func TestMatchOrdersRejectsAssetMismatch(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, feeAsset, assetA, 10, 2)

	_, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.ErrorIs(t, err, match.ErrAssetMismatch)
}

func TestMatchOrdersRejectsNegativeSpread(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	// Left demands 100 B per 5 A; right offers only 1 B per 200 A.
	left := leftMaker.sellOrder(t, assetA, assetB, 5, 100)
	right := rightMaker.sellOrder(t, assetB, assetA, 1, 200)

	_, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.ErrorIs(t, err, match.ErrNegativeSpread)
}

func TestCancelOrderBlocksFutureMatches(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	info, err := f.svc.CancelOrder(context.Background(), left)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, info.Status)

	res, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusOrderUnfillable, res.Status)
	require.Equal(t, order.StatusCancelled, res.Left.Status)
}

func TestCancelOrderRequiresMakerSignature(t *testing.T) {
	leftMaker := newSigner(t)
	intruder := newSigner(t)
	f := newFixture(t, leftMaker, intruder)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	sig, err := crypto.Sign(left.Hash().Bytes(), intruder.key)
	require.NoError(t, err)
	left.Signature = sig

	_, err = f.svc.CancelOrder(context.Background(), left)
	require.Error(t, err)

	info, err := f.svc.GetOrderInfo(&left.Order)
	require.NoError(t, err)
	require.Equal(t, order.StatusFillable, info.Status)
}

func TestStatusUpdatesArePublished(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)
	f := newFixture(t, leftMaker, rightMaker)

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	_, err := f.svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)

	require.Len(t, f.updates, 2)
	require.Equal(t, left.Hash().Hex(), f.updates[0].OrderHash)
	require.Equal(t, order.StatusFullyFilled.String(), f.updates[0].Status)
	require.Equal(t, "10", f.updates[0].FilledAmount)
}

func TestJournalAndOutboxRecordSettlements(t *testing.T) {
	leftMaker := newSigner(t)
	rightMaker := newSigner(t)

	led := ledger.New()
	led.SetBalance(assetA, leftMaker.addr, big.NewInt(1_000_000))
	led.SetBalance(assetB, rightMaker.addr, big.NewInt(1_000_000))

	dir := t.TempDir()
	jw, err := journal.Open(journal.Config{Dir: dir})
	require.NoError(t, err)

	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	defer ob.Close()

	svc := NewMatchService(Config{
		Store:        state.NewMemory(),
		Ledger:       led,
		FeeAssetData: feeAsset,
		Journal:      jw,
		Outbox:       ob,
		Now:          fixedNow,
	})

	left := leftMaker.sellOrder(t, assetA, assetB, 5, 10)
	right := rightMaker.sellOrder(t, assetB, assetA, 10, 2)

	res, err := svc.MatchOrders(context.Background(), left, right, taker)
	require.NoError(t, err)
	require.Equal(t, match.StatusSuccess, res.Status)
	require.NoError(t, jw.Close())

	// The journal replays into an empty store and reproduces the fills.
	rebuilt := state.NewMemory()
	lastSeq, err := ReplayJournal(dir, rebuilt)
	require.NoError(t, err)
	require.Equal(t, uint64(1), lastSeq)

	st, err := rebuilt.FillState(left.Hash())
	require.NoError(t, err)
	require.Equal(t, int64(10), st.FilledTakerAssetAmount.Int64())

	// The outbox holds one pending settlement event.
	var pending int
	require.NoError(t, ob.ScanPending(func(e *outbox.Entry) error {
		dec, derr := journal.DecodeSettlement(e.Payload)
		require.NoError(t, derr)
		require.Equal(t, left.Hash(), dec.LeftOrderHash)
		pending++
		return nil
	}))
	require.Equal(t, 1, pending)
}
