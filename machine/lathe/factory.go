// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package lathe

import (
	"fmt"

	"github.com/shopfloor-works/shopfloor/machine"
	"github.com/shopfloor-works/shopfloor/machine/conn"
)

// FromConfig is the lathe driver factory. Params:
//
//	address: TCP address of the machine's Bluetooth adapter (required)
func FromConfig(cfg machine.Config) (machine.Interface, error) {
	address, err := machine.StringParam(cfg.Params, "address")
	if err != nil {
		return nil, fmt.Errorf("lathe driver: %w", err)
	}
	transport, err := conn.DialByte(address)
	if err != nil {
		return nil, fmt.Errorf("lathe driver: %w", err)
	}
	return New(transport), nil
}
