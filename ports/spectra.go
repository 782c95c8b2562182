package ports

import (
	"context"

	"emfit/domain/spectrum"
	"emfit/domain/target"
)

// SpectrumSource loads the observed-frame spectrum of a target
type SpectrumSource interface {
	Spectrum(ctx context.Context, t target.Target) (*spectrum.Spectrum, error)
}

// TargetReader lists the targets of a run
type TargetReader interface {
	ReadTargets(path string) ([]target.Target, error)
}
