package vault

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"github.com/lidofinance/anchor-collateral-steth/storage"
)

const stateSchemaVersion uint64 = 1

var (
	stateKey = []byte("vault/state")

	// ErrNoState is returned by Load when nothing has been persisted yet.
	ErrNoState = errors.New("vault: no persisted state")
	// ErrCorruptState is returned when a persisted record fails its checksum.
	ErrCorruptState = errors.New("vault: persisted state checksum mismatch")
)

// Store persists the vault record in a key-value database.
type Store struct {
	db storage.Database
	mu sync.Mutex
}

// NewStore constructs a store backed by db.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

type storedState struct {
	Admin                         common.Address
	EmergencyAdmin                common.Address
	LiquidationsAdmin             common.Address
	ReceiptToken                  common.Address
	BaseAsset                     common.Address
	BridgeConnector               common.Address
	RewardsLiquidator             common.Address
	InsuranceConnector            common.Address
	RemoteDistributor             common.Hash
	NoLiquidationInterval         uint64
	RestrictedLiquidationInterval uint64
	LastLiquidationTime           uint64
	LastLiquidationSharePrice     []byte
	LastLiquidationSharesBurnt    []byte
	OperationsAllowed             bool
	Version                       uint64
	TotalReceiptRefunded          []byte
}

type storedEnvelope struct {
	Schema   uint64
	Payload  []byte
	Checksum []byte
}

// Save writes state.
func (s *Store) Save(state *State) error {
	if state == nil {
		return errors.New("vault: nil state")
	}
	var at uint64
	if !state.LastLiquidationTime.IsZero() {
		at = uint64(state.LastLiquidationTime.Unix())
	}
	payload, err := rlp.EncodeToBytes(storedState{
		Admin:                         state.Admin,
		EmergencyAdmin:                state.EmergencyAdmin,
		LiquidationsAdmin:             state.LiquidationsAdmin,
		ReceiptToken:                  state.ReceiptToken,
		BaseAsset:                     state.BaseAsset,
		BridgeConnector:               state.BridgeConnector,
		RewardsLiquidator:             state.RewardsLiquidator,
		InsuranceConnector:            state.InsuranceConnector,
		RemoteDistributor:             state.RemoteDistributor,
		NoLiquidationInterval:         uint64(state.NoLiquidationInterval),
		RestrictedLiquidationInterval: uint64(state.RestrictedLiquidationInterval),
		LastLiquidationTime:           at,
		LastLiquidationSharePrice:     cloneBig(state.LastLiquidationSharePrice).Bytes(),
		LastLiquidationSharesBurnt:    cloneBig(state.LastLiquidationSharesBurnt).Bytes(),
		OperationsAllowed:             state.OperationsAllowed,
		Version:                       state.Version,
		TotalReceiptRefunded:          cloneBig(state.TotalReceiptRefunded).Bytes(),
	})
	if err != nil {
		return err
	}
	sum := blake3.Sum256(payload)
	encoded, err := rlp.EncodeToBytes(storedEnvelope{Schema: stateSchemaVersion, Payload: payload, Checksum: sum[:]})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(stateKey, encoded)
}

// Load reads the persisted record.
func (s *Store) Load() (*State, error) {
	s.mu.Lock()
	data, err := s.db.Get(stateKey)
	s.mu.Unlock()
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, err
	}
	var envelope storedEnvelope
	if err := rlp.DecodeBytes(data, &envelope); err != nil {
		return nil, fmt.Errorf("vault: decode envelope: %w", err)
	}
	if envelope.Schema != stateSchemaVersion {
		return nil, fmt.Errorf("vault: unsupported state schema %d", envelope.Schema)
	}
	sum := blake3.Sum256(envelope.Payload)
	if !bytes.Equal(sum[:], envelope.Checksum) {
		return nil, ErrCorruptState
	}
	var stored storedState
	if err := rlp.DecodeBytes(envelope.Payload, &stored); err != nil {
		return nil, fmt.Errorf("vault: decode state: %w", err)
	}
	state := &State{
		Admin:                         stored.Admin,
		EmergencyAdmin:                stored.EmergencyAdmin,
		LiquidationsAdmin:             stored.LiquidationsAdmin,
		ReceiptToken:                  stored.ReceiptToken,
		BaseAsset:                     stored.BaseAsset,
		BridgeConnector:               stored.BridgeConnector,
		RewardsLiquidator:             stored.RewardsLiquidator,
		InsuranceConnector:            stored.InsuranceConnector,
		RemoteDistributor:             stored.RemoteDistributor,
		NoLiquidationInterval:         time.Duration(stored.NoLiquidationInterval),
		RestrictedLiquidationInterval: time.Duration(stored.RestrictedLiquidationInterval),
		LastLiquidationSharePrice:     new(big.Int).SetBytes(stored.LastLiquidationSharePrice),
		LastLiquidationSharesBurnt:    new(big.Int).SetBytes(stored.LastLiquidationSharesBurnt),
		OperationsAllowed:             stored.OperationsAllowed,
		Version:                       stored.Version,
		TotalReceiptRefunded:          new(big.Int).SetBytes(stored.TotalReceiptRefunded),
	}
	if stored.LastLiquidationTime != 0 {
		state.LastLiquidationTime = time.Unix(int64(stored.LastLiquidationTime), 0).UTC()
	}
	return state, nil
}
