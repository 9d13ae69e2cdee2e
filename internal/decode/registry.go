package decode

import "github.com/elly-po/pumpsniper/internal/model"

// NewRegistry builds the tag→Decoder registry the orchestrator consults
// after a fingerprint match (§4.6 "Decoder registry").
func NewRegistry() Registry {
	return Registry{
		model.TagPumpfunCreate:   NewBondingCurveDecoder(),
		model.TagRaydiumInitPool: NewAMMInitPoolDecoder(),
		model.TagMeteoraInitPool: NewVirtualPoolDecoder(),
	}
}
