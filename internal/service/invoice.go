package service

import (
	"github.com/goodnatureofminers/btctoolkit/internal/lightning"
	"github.com/goodnatureofminers/btctoolkit/internal/model"
)

// DecodeInvoice decodes a BOLT11 payment request.
func (s *Toolkit) DecodeInvoice(bolt11 string) (model.InvoiceInfo, error) {
	return observe(s, "decode invoice", func() (model.InvoiceInfo, error) {
		return lightning.DecodeInvoice(bolt11, s.network)
	})
}
