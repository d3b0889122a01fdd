// Package mint derives NFT-receipt asset identifiers for ledger entries.
package mint

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned by minters that could not produce an asset id.
var ErrUnavailable = errors.New("minting service unavailable")

// assetNameBytes is how much of the seed survives into the stub asset name.
const assetNameBytes = 8

var (
	// ReceiptPolicyID is the mock policy used for payment receipts.
	ReceiptPolicyID = strings.Repeat("f", 56)
	// InvoicePolicyID is the mock policy used for invoices.
	InvoicePolicyID = strings.Repeat("e", 56)
)

// Minter turns a seed (transaction or invoice id) into an asset id of the
// form "<policy_id>.<asset_name_hex>".
type Minter interface {
	Mint(ctx context.Context, seed string) (string, error)
}

// Stub derives asset ids deterministically without touching the network.
// Seeds sharing their first eight bytes map to the same id.
type Stub struct {
	PolicyID string
}

func NewStub(policyID string) Stub {
	return Stub{PolicyID: policyID}
}

func (s Stub) Mint(_ context.Context, seed string) (string, error) {
	name := []byte(seed)
	if len(name) > assetNameBytes {
		name = name[:assetNameBytes]
	}
	return s.PolicyID + "." + hex.EncodeToString(name), nil
}

// Fallback uses Secondary whenever Primary fails.
type Fallback struct {
	Primary   Minter
	Secondary Minter
	Log       logrus.FieldLogger
}

func (f Fallback) Mint(ctx context.Context, seed string) (string, error) {
	id, err := f.Primary.Mint(ctx, seed)
	if err == nil {
		return id, nil
	}
	if f.Log != nil {
		f.Log.WithError(err).WithField("seed", seed).Warn("primary minter failed, using fallback")
	}
	return f.Secondary.Mint(ctx, seed)
}
