// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package netconfig reads the network configuration a Ten node publishes,
// in particular the addresses of the system contracts.
package netconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const ConfigMethod = "obscuro_config"

var ErrConfigUnavailable = errors.New("network configuration unavailable")

// Contract names as used for persistence and logging.
const (
	ManagementContract    = "ManagementContractAddress"
	MessageBus            = "MessageBusAddress"
	L1Bridge              = "L1Bridge"
	L1CrossChainMessenger = "L1CrossChainMessenger"
	L2MessageBus          = "L2MessageBusAddress"
	L2Bridge              = "L2Bridge"
	L2CrossChainMessenger = "L2CrossChainMessenger"
)

// ContractAddresses is fetched once per run and passed by value to whatever needs it.
type ContractAddresses struct {
	Management            common.Address
	MessageBus            common.Address
	L1Bridge              common.Address
	L1CrossChainMessenger common.Address
	L2MessageBus          common.Address
	L2Bridge              common.Address
	L2CrossChainMessenger common.Address
}

// Named returns the addresses keyed by contract name.
func (c ContractAddresses) Named() map[string]common.Address {
	return map[string]common.Address{
		ManagementContract:    c.Management,
		MessageBus:            c.MessageBus,
		L1Bridge:              c.L1Bridge,
		L1CrossChainMessenger: c.L1CrossChainMessenger,
		L2MessageBus:          c.L2MessageBus,
		L2Bridge:              c.L2Bridge,
		L2CrossChainMessenger: c.L2CrossChainMessenger,
	}
}

type importantContracts struct {
	L1Bridge              common.Address `json:"L1Bridge"`
	L1CrossChainMessenger common.Address `json:"L1CrossChainMessenger"`
	L2Bridge              common.Address `json:"L2Bridge"`
	L2CrossChainMessenger common.Address `json:"L2CrossChainMessenger"`
}

type networkConfig struct {
	ManagementContractAddress common.Address     `json:"ManagementContractAddress"`
	MessageBusAddress         common.Address     `json:"MessageBusAddress"`
	L2MessageBusAddress       common.Address     `json:"L2MessageBusAddress"`
	ImportantContracts        importantContracts `json:"ImportantContracts"`
}

type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

func FetchContractAddresses(ctx context.Context, caller Caller) (ContractAddresses, error) {
	var config *networkConfig
	if err := caller.CallContext(ctx, &config, ConfigMethod); err != nil {
		return ContractAddresses{}, fmt.Errorf("%w: %s", ErrConfigUnavailable, err.Error())
	}
	if config == nil {
		return ContractAddresses{}, fmt.Errorf("%w: empty result", ErrConfigUnavailable)
	}
	return ContractAddresses{
		Management:            config.ManagementContractAddress,
		MessageBus:            config.MessageBusAddress,
		L1Bridge:              config.ImportantContracts.L1Bridge,
		L1CrossChainMessenger: config.ImportantContracts.L1CrossChainMessenger,
		L2MessageBus:          config.L2MessageBusAddress,
		L2Bridge:              config.ImportantContracts.L2Bridge,
		L2CrossChainMessenger: config.ImportantContracts.L2CrossChainMessenger,
	}, nil
}
