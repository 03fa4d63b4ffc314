package InputParameters

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/notargets/gopinn/types"
)

// ConfigurationError reports an invalid or physically inconsistent input parameter.
// It is detected before training starts and is never recovered locally.
type ConfigurationError struct {
	Parameter string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Parameter, e.Reason)
}

func cfgErr(param, format string, args ...interface{}) error {
	return &ConfigurationError{Parameter: param, Reason: fmt.Sprintf(format, args...)}
}

func positive(name string, val float64) error {
	if !(val > 0) || math.IsInf(val, 0) {
		return cfgErr(name, "must be positive and finite, have %v", val)
	}
	return nil
}

func nonNegative(name string, val float64) error {
	if !(val >= 0) || math.IsInf(val, 0) {
		return cfgErr(name, "must be non-negative and finite, have %v", val)
	}
	return nil
}

// Validate checks every parameter and returns all problems found, joined
func (ip *InputParametersHelmholtz) Validate() error {
	var (
		errs []error
		add  = func(err error) {
			if err != nil {
				errs = append(errs, err)
			}
		}
	)
	if len(ip.DomainExtent) != 2 {
		add(cfgErr("DomainExtent", "must have two entries [Lx, Ly], have %d", len(ip.DomainExtent)))
		return errors.Join(errs...)
	}
	add(positive("DomainExtent[0]", ip.DomainExtent[0]))
	add(positive("DomainExtent[1]", ip.DomainExtent[1]))
	gm, err := types.NewGeometryMode(ip.GeometryMode)
	if err != nil {
		add(cfgErr("GeometryMode", "%s", err.Error()))
	}
	if len(ip.GeometryCenter) != 2 {
		add(cfgErr("GeometryCenter", "must have two entries, have %d", len(ip.GeometryCenter)))
	}
	if ip.NBackground < 0 {
		add(cfgErr("NBackground", "refractive index must be positive, have %v", ip.NBackground))
	}
	if ip.NInclusion < 0 {
		add(cfgErr("NInclusion", "refractive index must be positive, have %v", ip.NInclusion))
	}
	epsB, epsI := ip.EpsBackground(), ip.EpsInclusion()
	add(positive("EpsilonBackground", epsB))
	if gm != types.GEOM_None {
		add(positive("EpsilonInclusion", epsI))
		if epsI < epsB {
			add(cfgErr("EpsilonInclusion", "must be >= EpsilonBackground (%v), have %v", epsB, epsI))
		}
	}
	add(nonNegative("InterfaceWidth", ip.InterfaceWidth))
	switch gm {
	case types.GEOM_Circle:
		add(positive("Radius", ip.Radius))
	case types.GEOM_Square:
		add(positive("Side", ip.Side))
	case types.GEOM_Waveguide:
		add(positive("Width", ip.Width))
		add(positive("Thickness", ip.Thickness))
	case types.GEOM_Topography:
		add(positive("TopographyPeriod", ip.TopographyPeriod))
		add(nonNegative("TopographyAmplitude", ip.TopographyAmplitude))
	}
	// Source
	add(positive("SourceWidth", ip.SourceWidth))
	add(positive("SourceAmplitude", ip.SourceAmplitude))
	if len(ip.SourceCenter) != 2 {
		add(cfgErr("SourceCenter", "must have two entries, have %d", len(ip.SourceCenter)))
	} else if math.Abs(ip.SourceCenter[0]) >= ip.DomainExtent[0] ||
		math.Abs(ip.SourceCenter[1]) >= ip.DomainExtent[1] {
		add(cfgErr("SourceCenter", "[%v, %v] lies outside the domain", ip.SourceCenter[0], ip.SourceCenter[1]))
	}
	// Frequency
	if ip.Wavelength < 0 {
		add(cfgErr("Wavelength", "must be positive, have %v", ip.Wavelength))
	}
	add(positive("AngularFrequency", ip.Omega()))
	// PML
	add(positive("PMLWidth", ip.PMLWidth))
	if ip.PMLWidth > 0 && (ip.PMLWidth >= ip.DomainExtent[0] || ip.PMLWidth >= ip.DomainExtent[1]) {
		add(cfgErr("PMLWidth", "opposing layers overlap, width %v with domain half extent [%v, %v]",
			ip.PMLWidth, ip.DomainExtent[0], ip.DomainExtent[1]))
	}
	if !(ip.PMLMaxDamping >= 1) || math.IsInf(ip.PMLMaxDamping, 0) {
		add(cfgErr("PMLMaxDamping", "must be a finite value >= 1, have %v", ip.PMLMaxDamping))
	}
	if ip.PMLOrder < 1 {
		add(cfgErr("PMLOrder", "must be >= 1, have %d", ip.PMLOrder))
	}
	// Network
	if ip.NetworkDepth < 1 {
		add(cfgErr("NetworkDepth", "must be >= 1, have %d", ip.NetworkDepth))
	}
	if ip.NetworkWidth < 1 {
		add(cfgErr("NetworkWidth", "must be >= 1, have %d", ip.NetworkWidth))
	}
	add(positive("Omega0First", ip.Omega0First))
	add(positive("Omega0Hidden", ip.Omega0Hidden))
	// Training
	add(positive("LearningRate", ip.LearningRate))
	if !(ip.LRDecay > 0 && ip.LRDecay <= 1) {
		add(cfgErr("LRDecay", "must lie in (0, 1], have %v", ip.LRDecay))
	}
	add(nonNegative("GradClip", ip.GradClip))
	if ip.MaxIterations < 0 {
		add(cfgErr("MaxIterations", "must be >= 0, have %d", ip.MaxIterations))
	}
	if len(ip.MaxDuration) != 0 {
		if _, err = time.ParseDuration(ip.MaxDuration); err != nil {
			add(cfgErr("MaxDuration", "%s", err.Error()))
		}
	}
	add(nonNegative("ConvergenceThreshold", ip.ConvergenceThreshold))
	if ip.ConvergenceWindow < 1 {
		add(cfgErr("ConvergenceWindow", "must be >= 1, have %d", ip.ConvergenceWindow))
	}
	if ip.PlateauWindow < 0 {
		add(cfgErr("PlateauWindow", "must be >= 0, have %d", ip.PlateauWindow))
	}
	add(nonNegative("PlateauTolerance", ip.PlateauTolerance))
	add(positive("DivergenceBound", ip.DivergenceBound))
	if ip.BatchSize < 1 {
		add(cfgErr("BatchSize", "must be >= 1, have %d", ip.BatchSize))
	}
	if ip.BoundaryBatchSize < 0 {
		add(cfgErr("BoundaryBatchSize", "must be >= 0, have %d", ip.BoundaryBatchSize))
	}
	add(nonNegative("BoundaryWeight", ip.BoundaryWeight))
	if ip.BoundaryWeight > 0 && ip.BoundaryBatchSize == 0 {
		add(cfgErr("BoundaryBatchSize", "must be > 0 when BoundaryWeight is set"))
	}
	if ip.ResampleEvery < 0 {
		add(cfgErr("ResampleEvery", "must be >= 0, have %d", ip.ResampleEvery))
	}
	if !(ip.SourceSampleFraction >= 0 && ip.SourceSampleFraction <= 1) {
		add(cfgErr("SourceSampleFraction", "must lie in [0, 1], have %v", ip.SourceSampleFraction))
	}
	if ip.LBFGSIterations < 0 {
		add(cfgErr("LBFGSIterations", "must be >= 0, have %d", ip.LBFGSIterations))
	}
	return errors.Join(errs...)
}
