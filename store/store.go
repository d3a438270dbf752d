package store

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/meverselabs/stableswap/contract/exchange/trade"
	"github.com/meverselabs/stableswap/contract/exchange/util"
)

var ErrInvalidName = errors.New("invalid name")

// Store persists pool snapshots and LP ledgers under a name. Each Save is
// one transaction of the backend.
type Store struct {
	back   StoreBackend
	logger *zap.Logger
}

func Open(driver, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	back, err := Create(driver, path)
	if err != nil {
		return nil, err
	}
	logger = logger.Named("store")
	logger.Info("opened", zap.String("driver", driver), zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
	return &Store{back: back, logger: logger}, nil
}

func OpenMemory() (*Store, error) {
	return Open("memory", "", nil)
}

func (s *Store) Close() error {
	start := time.Now()
	err := s.back.Close()
	s.logger.Info("closed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	return err
}

func checkName(name string) error {
	if len(name) == 0 || len(name) > 255 {
		return errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

type writer struct {
	txn StoreWriter
	err error
}

func (w *writer) set(key, value []byte) {
	if w.err == nil {
		w.err = w.txn.Set(key, value)
	}
}

func (w *writer) deletePrefix(prefix []byte) {
	if w.err != nil {
		return
	}
	keys := [][]byte{}
	if w.err = w.txn.Iterate(prefix, func(key, value []byte) error {
		keys = append(keys, key)
		return nil
	}); w.err != nil {
		return
	}
	for _, key := range keys {
		if w.err = w.txn.Delete(key); w.err != nil {
			return
		}
	}
}

type reader struct {
	txn StoreReader
	err error
}

func (r *reader) get(key []byte) []byte {
	if r.err != nil {
		return nil
	}
	value, err := r.txn.Get(key)
	if err != nil {
		r.err = errors.Wrapf(err, "key %x", key)
		return nil
	}
	return value
}

func (r *reader) getUint64(key []byte) uint64 {
	bs := r.get(key)
	if r.err != nil {
		return 0
	}
	if len(bs) != 8 {
		r.err = errors.Errorf("key %x: invalid uint64", key)
		return 0
	}
	return binary.BigEndian.Uint64(bs)
}

func (r *reader) getUint256(key []byte) *uint256.Int {
	bs := r.get(key)
	if r.err != nil {
		return nil
	}
	if len(bs) > 32 {
		r.err = errors.Errorf("key %x: invalid uint256", key)
		return nil
	}
	return new(uint256.Int).SetBytes(bs)
}

func (r *reader) getAddress(key []byte) common.Address {
	bs := r.get(key)
	if r.err == nil && len(bs) != common.AddressLength {
		r.err = errors.Errorf("key %x: invalid address", key)
	}
	return common.BytesToAddress(bs)
}

func (r *reader) getBool(key []byte) bool {
	bs := r.get(key)
	return len(bs) == 1 && bs[0] == 1
}

//////////////////////////////////////////////////
// Store : pool
//////////////////////////////////////////////////

func (s *Store) SavePool(name string, st *trade.PoolState) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(st.Balances) > 255 {
		return errors.Errorf("pool %s: too many coins", name)
	}
	err := s.back.Update(func(txn StoreWriter) error {
		w := &writer{txn: txn}
		w.deletePrefix(makeKey(name, tagStableReserves))
		w.set(makeKey(name, tagExNTokens), uint64Bytes(uint64(len(st.Balances))))
		for i, b := range st.Balances {
			w.set(makeKey(name, tagStableReserves, []byte{byte(i)}), b.Bytes())
		}
		w.set(makeKey(name, tagStableInitialAmp), st.Amp.InitialA.Bytes())
		w.set(makeKey(name, tagStableFutureAmp), st.Amp.FutureA.Bytes())
		w.set(makeKey(name, tagStableInitialAmpTime), uint64Bytes(st.Amp.InitialTime))
		w.set(makeKey(name, tagStableFutureAmpTime), uint64Bytes(st.Amp.FutureTime))
		w.set(makeKey(name, tagExVolume), st.Volume.Bytes())

		w.set(makeKey(name, tagOwner), st.Owner[:])
		w.set(makeKey(name, tagExFutureOwner), st.FutureOwner[:])
		w.set(makeKey(name, tagExTransferOwnerDeadline), uint64Bytes(st.TransferOwnershipDeadline))

		w.set(makeKey(name, tagExFee), uint64Bytes(st.Fee))
		w.set(makeKey(name, tagExAdminFee), uint64Bytes(st.AdminFee))
		w.set(makeKey(name, tagExFutureFee), uint64Bytes(st.FutureFee))
		w.set(makeKey(name, tagExFutureAdminFee), uint64Bytes(st.FutureAdminFee))
		w.set(makeKey(name, tagExAdminActionsDeadline), uint64Bytes(st.AdminActionsDeadline))

		w.set(makeKey(name, tagExIsKilled), boolBytes(st.IsKilled))
		w.set(makeKey(name, tagExKillDeadline), uint64Bytes(st.KillDeadline))
		return w.err
	})
	if err != nil {
		return errors.Wrapf(err, "save pool %s", name)
	}
	s.logger.Debug("pool saved", zap.String("pool", name), zap.Strings("balances", util.SliceString(st.Balances)))
	return nil
}

func (s *Store) LoadPool(name string) (*trade.PoolState, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	st := &trade.PoolState{}
	err := s.back.View(func(txn StoreReader) error {
		r := &reader{txn: txn}
		n := r.getUint64(makeKey(name, tagExNTokens))
		if r.err != nil {
			return r.err
		}
		if n > 255 {
			return errors.Errorf("invalid coin count %d", n)
		}
		st.Balances = make([]*uint256.Int, n)
		for i := range st.Balances {
			st.Balances[i] = r.getUint256(makeKey(name, tagStableReserves, []byte{byte(i)}))
		}
		st.Amp = trade.AmplificationState{
			InitialA:    r.getUint256(makeKey(name, tagStableInitialAmp)),
			FutureA:     r.getUint256(makeKey(name, tagStableFutureAmp)),
			InitialTime: r.getUint64(makeKey(name, tagStableInitialAmpTime)),
			FutureTime:  r.getUint64(makeKey(name, tagStableFutureAmpTime)),
		}
		st.Volume = r.getUint256(makeKey(name, tagExVolume))

		st.Owner = r.getAddress(makeKey(name, tagOwner))
		st.FutureOwner = r.getAddress(makeKey(name, tagExFutureOwner))
		st.TransferOwnershipDeadline = r.getUint64(makeKey(name, tagExTransferOwnerDeadline))

		st.Fee = r.getUint64(makeKey(name, tagExFee))
		st.AdminFee = r.getUint64(makeKey(name, tagExAdminFee))
		st.FutureFee = r.getUint64(makeKey(name, tagExFutureFee))
		st.FutureAdminFee = r.getUint64(makeKey(name, tagExFutureAdminFee))
		st.AdminActionsDeadline = r.getUint64(makeKey(name, tagExAdminActionsDeadline))

		st.IsKilled = r.getBool(makeKey(name, tagExIsKilled))
		st.KillDeadline = r.getUint64(makeKey(name, tagExKillDeadline))
		return r.err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load pool %s", name)
	}
	return st, nil
}

// SaveClock records the last time a pool was run at, so that a restored pool
// never sees its deadlines from an earlier clock.
func (s *Store) SaveClock(name string, now uint64) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := s.back.Update(func(txn StoreWriter) error {
		return txn.Set(makeKey(name, tagExClock), uint64Bytes(now))
	})
	if err != nil {
		return errors.Wrapf(err, "save clock %s", name)
	}
	return nil
}

func (s *Store) LoadClock(name string) (uint64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var now uint64
	err := s.back.View(func(txn StoreReader) error {
		r := &reader{txn: txn}
		now = r.getUint64(makeKey(name, tagExClock))
		return r.err
	})
	if err != nil {
		return 0, errors.Wrapf(err, "load clock %s", name)
	}
	return now, nil
}

//////////////////////////////////////////////////
// Store : ledger
//////////////////////////////////////////////////

func (s *Store) SaveLedger(name string, ls *trade.LedgerState) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := s.back.Update(func(txn StoreWriter) error {
		w := &writer{txn: txn}
		w.deletePrefix(makeKey(name, tagTokenAmount))
		w.deletePrefix(makeKey(name, tagTokenApprove))

		w.set(makeKey(name, tagTokenName), []byte(ls.Name))
		w.set(makeKey(name, tagTokenSymbol), []byte(ls.Symbol))
		w.set(makeKey(name, tagTokenTotalSupply), ls.TotalSupply.Bytes())
		for holder, balance := range ls.Balances {
			w.set(makeKey(name, tagTokenAmount, holder[:]), balance.Bytes())
		}
		for owner, spenders := range ls.Allowances {
			for spender, amount := range spenders {
				w.set(makeKey(name, tagTokenApprove, owner[:], spender[:]), amount.Bytes())
			}
		}
		return w.err
	})
	if err != nil {
		return errors.Wrapf(err, "save ledger %s", name)
	}
	s.logger.Debug("ledger saved", zap.String("ledger", name), zap.Int("holders", len(ls.Balances)))
	return nil
}

func (s *Store) LoadLedger(name string) (*trade.LedgerState, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	ls := &trade.LedgerState{
		Balances:   map[common.Address]*uint256.Int{},
		Allowances: map[common.Address]map[common.Address]*uint256.Int{},
	}
	err := s.back.View(func(txn StoreReader) error {
		r := &reader{txn: txn}
		ls.Name = string(r.get(makeKey(name, tagTokenName)))
		ls.Symbol = string(r.get(makeKey(name, tagTokenSymbol)))
		ls.TotalSupply = r.getUint256(makeKey(name, tagTokenTotalSupply))
		if r.err != nil {
			return r.err
		}

		prefix := makeKey(name, tagTokenAmount)
		if err := txn.Iterate(prefix, func(key, value []byte) error {
			holder := key[len(prefix):]
			if len(holder) != common.AddressLength || len(value) > 32 {
				return errors.Errorf("key %x: invalid balance", key)
			}
			ls.Balances[common.BytesToAddress(holder)] = new(uint256.Int).SetBytes(value)
			return nil
		}); err != nil {
			return err
		}

		prefix = makeKey(name, tagTokenApprove)
		return txn.Iterate(prefix, func(key, value []byte) error {
			pair := key[len(prefix):]
			if len(pair) != 2*common.AddressLength || len(value) > 32 {
				return errors.Errorf("key %x: invalid allowance", key)
			}
			owner := common.BytesToAddress(pair[:common.AddressLength])
			spender := common.BytesToAddress(pair[common.AddressLength:])
			m, has := ls.Allowances[owner]
			if !has {
				m = map[common.Address]*uint256.Int{}
				ls.Allowances[owner] = m
			}
			m[spender] = new(uint256.Int).SetBytes(value)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load ledger %s", name)
	}
	return ls, nil
}
