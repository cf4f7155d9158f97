package evm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tesoro-hq/tesoro/api/config"
	"github.com/tesoro-hq/tesoro/api/logging"
	"golang.org/x/sync/errgroup"
)

// ResolveClientsFromConfig provisions a map of [chainID] => ethclient.Client based on the config.
func ResolveClientsFromConfig(
	ctx context.Context,
	cfg *config.Config,
	logger zerolog.Logger,
) (map[uint64]*ethclient.Client, error) {
	var (
		clients             = make(map[uint64]*ethclient.Client, len(cfg.ChainConfigs))
		mu                  = sync.Mutex{}
		errGroup, ctxShared = errgroup.WithContext(ctx)
	)

	for chainID := range cfg.ChainConfigs {
		chain := *cfg.ChainConfigs[chainID]
		errGroup.Go(func() error {
			client, err := NewFromConfig(ctxShared, chain, logger)
			if err != nil {
				return errors.Wrapf(err, "failed to create client for chain %d", chain.ChainID)
			}

			mu.Lock()
			clients[chain.ChainID] = client
			mu.Unlock()

			return nil
		})
	}

	if err := errGroup.Wait(); err != nil {
		return nil, err
	}

	return clients, nil
}

// NewFromConfig creates a new ethclient.Client from a chain configuration.
func NewFromConfig(
	ctx context.Context,
	chain config.ChainConfig,
	logger zerolog.Logger,
) (*ethclient.Client, error) {
	logger = logger.With().
		Uint64(logging.FieldChain, chain.ChainID).
		Str(logging.FieldModule, "evm_client").
		Logger()

	isWebSocket := isWebSocketURL(chain.RPCURL)

	var evmClient *ethclient.Client

	if isWebSocket {
		rpcClient, err := rpc.DialWebsocket(ctx, chain.RPCURL, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create WebSocket RPC client")
		}

		evmClient = ethclient.NewClient(rpcClient)
	} else {
		client, err := ethclient.Dial(chain.RPCURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to chain")
		}

		evmClient = client
	}

	// verify that the client works
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bn, err := evmClient.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block number")
	}

	logger.Info().
		Bool("is_websocket", isWebSocket).
		Uint64(logging.FieldBlock, bn).
		Msg("Successfully created EVM client")

	return evmClient, nil
}

func isWebSocketURL(url string) bool {
	return strings.HasPrefix(url, "wss://") || strings.HasPrefix(url, "ws://")
}
