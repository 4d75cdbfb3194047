// Package lightning decodes BOLT11 payment requests.
package lightning

import (
	"encoding/hex"
	"strings"

	"github.com/goodnatureofminers/btctoolkit/internal/address"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
	"github.com/lightningnetwork/lnd/zpay32"
)

const decodeOp = "decode invoice"

// DecodeInvoice decodes and verifies a payment request for network. A
// "lightning:" URI prefix is accepted.
func DecodeInvoice(bolt11 string, network model.Network) (model.InvoiceInfo, error) {
	params, err := address.Params(network)
	if err != nil {
		return model.InvoiceInfo{}, model.NewError(model.ErrInvalidEncoding, decodeOp, "network", err)
	}
	s := strings.ToLower(strings.TrimSpace(bolt11))
	s = strings.TrimPrefix(s, "lightning:")

	inv, err := zpay32.Decode(s, params)
	if err != nil {
		return model.InvoiceInfo{}, model.NewError(model.ErrInvalidEncoding, decodeOp, "invoice", err)
	}

	info := model.InvoiceInfo{
		Network:            network,
		Timestamp:          inv.Timestamp.UTC(),
		Expiry:             int64(inv.Expiry().Seconds()),
		MinFinalCLTVExpiry: inv.MinFinalCLTVExpiry(),
		RouteHints:         len(inv.RouteHints),
	}
	if inv.MilliSat != nil {
		msat := uint64(*inv.MilliSat)
		info.AmountMsat = &msat
	}
	if inv.PaymentHash != nil {
		info.PaymentHash = hex.EncodeToString(inv.PaymentHash[:])
	}
	if inv.Destination != nil {
		info.Payee = hex.EncodeToString(inv.Destination.SerializeCompressed())
	}
	if inv.Description != nil {
		info.Description = *inv.Description
	}
	if inv.DescriptionHash != nil {
		info.DescriptionHash = hex.EncodeToString(inv.DescriptionHash[:])
	}
	if inv.FallbackAddr != nil {
		info.FallbackAddress = inv.FallbackAddr.EncodeAddress()
	}
	return info, nil
}
