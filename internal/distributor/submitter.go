package distributor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// DefaultGasLimit is the gas limit used for updateTree when none is set.
const DefaultGasLimit = 1_000_000

// Backend is the subset of the chain client needed to sign and send.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// SubmitterConfig configures the keeper transaction.
type SubmitterConfig struct {
	PrivateKey string
	GasLimit   uint64
	Legacy     bool
	Wait       bool
}

// Submitter signs payloads with the keeper key and broadcasts them.
type Submitter struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     SubmitterConfig
	logger  *zap.Logger
}

func NewSubmitter(backend Backend, cfg SubmitterConfig, logger *zap.Logger) (*Submitter, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse keeper key: %w", err)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// From returns the keeper address.
func (s *Submitter) From() common.Address {
	return s.from
}

// Submit signs and sends p, returning the transaction hash. With Wait set it
// blocks until the transaction is mined and fails on a reverted receipt.
func (s *Submitter) Submit(ctx context.Context, p Payload) (common.Hash, error) {
	tx, err := s.Build(ctx, p)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("send updateTree: %w", err)
	}
	s.logger.Info("updateTree sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("root", p.Root.Hex()),
		zap.Uint64("nonce", tx.Nonce()),
	)

	if s.cfg.Wait {
		deployBackend, ok := s.backend.(bind.DeployBackend)
		if !ok {
			return tx.Hash(), fmt.Errorf("backend cannot wait for receipts")
		}
		receipt, err := bind.WaitMined(ctx, deployBackend, tx)
		if err != nil {
			return tx.Hash(), fmt.Errorf("wait updateTree: %w", err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			return tx.Hash(), fmt.Errorf("updateTree %s reverted", tx.Hash().Hex())
		}
		s.logger.Info("updateTree mined", zap.String("tx", tx.Hash().Hex()), zap.Uint64("block", receipt.BlockNumber.Uint64()))
	}
	return tx.Hash(), nil
}

// Build signs the updateTree transaction without sending it.
func (s *Submitter) Build(ctx context.Context, p Payload) (*types.Transaction, error) {
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	to := p.Distributor
	var txData types.TxData
	if s.cfg.Legacy {
		gasPrice, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas price: %w", err)
		}
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      s.cfg.GasLimit,
			To:       &to,
			Data:     p.Calldata,
		}
	} else {
		tip, err := s.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("gas tip: %w", err)
		}
		head, err := s.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("latest header: %w", err)
		}
		feeCap := new(big.Int).Set(tip)
		if head.BaseFee != nil {
			feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		}
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       s.cfg.GasLimit,
			To:        &to,
			Data:      p.Calldata,
		}
	}

	tx, err := types.SignNewTx(s.key, types.LatestSignerForChainID(chainID), txData)
	if err != nil {
		return nil, fmt.Errorf("sign updateTree: %w", err)
	}
	return tx, nil
}
