package fleet

import (
	"context"
	"hash/fnv"
	"math"
	"strconv"
	"sync"
	"time"

	"shipsense/internal/logging"
)

// ConditioningParams are the environmental and operational parameters the
// performance model is conditioned on. Defaults represent typical fair
// weather, loaded vessel.
type ConditioningParams struct {
	WindSpeed          float64 `yaml:"wind_speed"`           // [m/s]
	WindDirection      float64 `yaml:"wind_direction"`       // [degrees]
	WaveHeight         float64 `yaml:"wave_height"`          // [m]
	WaveDirection      float64 `yaml:"wave_direction"`       // [degrees]
	CurrentSpeed       float64 `yaml:"current_speed"`        // [m/s]
	CurrentDirection   float64 `yaml:"current_direction"`    // [degrees]
	MeanDraft          float64 `yaml:"mean_draft"`           // [m]
	Trim               float64 `yaml:"trim"`                 // [m]
	ShipHeading        float64 `yaml:"ship_heading"`         // [degrees]
	FuelSpecificEnergy float64 `yaml:"fuel_specific_energy"` // [MJ/kg]
}

// DefaultConditioning returns the baseline conditioning parameters.
func DefaultConditioning() ConditioningParams {
	return ConditioningParams{
		WindSpeed:          6,
		WindDirection:      180,
		WaveHeight:         2,
		WaveDirection:      90,
		CurrentSpeed:       0.5,
		CurrentDirection:   0,
		MeanDraft:          20,
		Trim:               -1,
		ShipHeading:        0,
		FuelSpecificEnergy: 41.5,
	}
}

// envEffects are the multiplicative factors environmental conditions apply
// to the base performance values.
type envEffects struct {
	sogFactor      float64
	powerFactor    float64
	fuelFactor     float64
	emissionFactor float64
	rpmFactor      float64
}

// computeEnvEffects derives the conditioning factors.
// Headwind adds up to 2% resistance per m/s, tailwind subtracts up to 1%;
// waves add 3% per meter; draft 1% per meter off the 20m baseline; trim
// 0.5% per meter. Fuel tracks power with overhead, RPM follows power^0.8.
func computeEnvEffects(p ConditioningParams) envEffects {
	relWind := relativeAngle(p.WindDirection, p.ShipHeading)
	windFactor := 1.0
	if relWind < 90 {
		windFactor += (p.WindSpeed * 0.02) * (relWind / 90)
	} else if relWind > 270 {
		windFactor -= (p.WindSpeed * 0.01) * ((360 - relWind) / 90)
	}

	waveFactor := 1.0 + p.WaveHeight*0.03

	relCurrent := relativeAngle(p.CurrentDirection, p.ShipHeading)
	currentSOG := 1.0
	if relCurrent < 90 {
		currentSOG += (p.CurrentSpeed * 0.1) * (relCurrent / 90)
	} else if relCurrent > 270 {
		currentSOG -= (p.CurrentSpeed * 0.1) * ((360 - relCurrent) / 90)
	}

	draftFactor := 1.0 + (p.MeanDraft-20)*0.01
	trimFactor := 1.0 + math.Abs(p.Trim)*0.005

	powerFactor := windFactor * waveFactor * draftFactor * trimFactor
	fuelFactor := powerFactor * 1.1

	return envEffects{
		sogFactor:      currentSOG,
		powerFactor:    powerFactor,
		fuelFactor:     fuelFactor,
		emissionFactor: fuelFactor,
		rpmFactor:      math.Pow(powerFactor, 0.8),
	}
}

func relativeAngle(direction, heading float64) float64 {
	rel := math.Abs(direction - heading)
	if rel > 180 {
		rel = 360 - rel
	}
	return rel
}

// Base values for a loaded tanker at service speed, taken from the Toqua
// speed-fuel curve reference data.
const (
	baseSpeed     = 12.02808   // [kn]
	baseFuel      = 41.47120   // [MT/day]
	baseRPM       = 49.77248   // [rpm]
	basePower     = 9830.67947 // [kW]
	baseEmissions = 131.48443  // [kg/day]
)

// MockSource is an in-process metric source that simulates the Toqua Ship
// Kernels API: base performance values conditioned on environmental
// parameters, with small per-sample variation. The variation is a pure
// function of (vessel, metric, timestamp), so fetches are reproducible.
type MockSource struct {
	mu           sync.RWMutex
	catalog      *Catalog
	conditioning ConditioningParams

	// Latency simulates upstream round-trip time; zero in tests.
	Latency time.Duration
}

// NewMockSource creates a mock source over the given catalog.
func NewMockSource(catalog *Catalog) *MockSource {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &MockSource{
		catalog:      catalog,
		conditioning: DefaultConditioning(),
	}
}

// SetConditioning replaces the environmental parameters for future fetches.
func (m *MockSource) SetConditioning(p ConditioningParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conditioning = p
}

// SetCatalog swaps the vessel catalog (used by the catalog watcher).
func (m *MockSource) SetCatalog(c *Catalog) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = c
}

// Vessels implements Source.
func (m *MockSource) Vessels(ctx context.Context) ([]Vessel, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UpstreamError{Op: "vessels", Err: err}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Vessel, len(m.catalog.Vessels))
	copy(out, m.catalog.Vessels)
	return out, nil
}

// Fetch implements Source.
func (m *MockSource) Fetch(ctx context.Context, vesselID int, metric Metric, tr TimeRange) (MetricSeries, error) {
	timer := logging.StartTimer(logging.CategoryFleet, "mock fetch")
	defer timer.Stop()

	if err := tr.Validate(); err != nil {
		return MetricSeries{}, err
	}
	if _, err := ParseMetric(string(metric)); err != nil {
		return MetricSeries{}, err
	}

	m.mu.RLock()
	vessel, ok := m.catalog.Find(vesselID)
	cond := m.conditioning
	m.mu.RUnlock()
	if !ok {
		return MetricSeries{}, &NotFoundError{Kind: "vessel", Name: strconv.Itoa(vesselID)}
	}

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return MetricSeries{}, &UpstreamError{Op: "fetch", Err: ctx.Err()}
		}
	}
	if err := ctx.Err(); err != nil {
		return MetricSeries{}, &UpstreamError{Op: "fetch", Err: err}
	}

	effects := computeEnvEffects(cond)
	step := sampleInterval(tr)

	series := MetricSeries{
		VesselID: vesselID,
		Metric:   metric,
		Range:    tr,
	}

	idx := 0
	for t := tr.Start; t.Before(tr.End); t = t.Add(step) {
		value, warning := m.sample(vessel, metric, cond, effects, t)
		series.Points = append(series.Points, DataPoint{Timestamp: t, Value: value})
		if warning != nil {
			w := *warning
			w.Index = idx
			series.Warnings = append(series.Warnings, w)
		}
		idx++
	}

	logging.FleetDebug("mock fetch: imo=%d metric=%s points=%d warnings=%d",
		vesselID, metric, len(series.Points), len(series.Warnings))
	return series, nil
}

// sample produces one conditioned data point. RPM and power are clamped at
// the engine limits, mirroring the kernels API error reporting.
func (m *MockSource) sample(v Vessel, metric Metric, cond ConditioningParams, fx envEffects, t time.Time) (*float64, *SeriesWarning) {
	j := jitter(v.IMO, metric, t)

	switch metric {
	case MetricSpeed:
		return Float(round5(baseSpeed * fx.sogFactor * j.scale(0.03))), nil
	case MetricFuel:
		return Float(round2(baseFuel * fx.fuelFactor * j.scale(0.04))), nil
	case MetricTrim:
		return Float(round2(cond.Trim * j.scale(0.02))), nil
	case MetricDraft:
		return Float(round2(cond.MeanDraft * j.scale(0.01))), nil
	case MetricWeatherFactor:
		return Float(round5(fx.powerFactor * j.scale(0.02))), nil
	case MetricRPM:
		rpm := baseRPM * fx.rpmFactor * j.scale(0.02)
		if rpm >= v.MaxRPM {
			return Float(round5(v.MaxRPM * 0.98)), &SeriesWarning{
				Code:        "max_rpm_limit_exceeded",
				Description: "maximum RPM exceeded; value clamped",
			}
		}
		return Float(round5(rpm)), nil
	case MetricPower:
		power := basePower * fx.powerFactor * j.scale(0.05)
		if power >= v.MCR*0.9 {
			return Float(round2(v.MCR * 0.9)), &SeriesWarning{
				Code:        "max_mcr_limit_exceeded",
				Description: "90% maximum MCR exceeded; value clamped",
			}
		}
		return Float(round2(power)), nil
	case MetricEmissions:
		return Float(round2(baseEmissions * fx.emissionFactor * j.scale(0.04))), nil
	default:
		// Unreachable: metric is validated in Fetch.
		return nil, nil
	}
}

// sampleInterval picks the sampling step for a range: hourly for short
// ranges, six-hourly up to two weeks, daily beyond.
func sampleInterval(tr TimeRange) time.Duration {
	d := tr.Duration()
	switch {
	case d <= 48*time.Hour:
		return time.Hour
	case d <= 14*24*time.Hour:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// jitterValue is a deterministic pseudo-random value in [0,1) derived from
// (vessel, metric, timestamp).
type jitterValue float64

func jitter(imo int, metric Metric, t time.Time) jitterValue {
	h := fnv.New64a()
	var buf [8]byte
	putInt64(buf[:], int64(imo))
	h.Write(buf[:])
	h.Write([]byte(metric))
	putInt64(buf[:], t.Unix())
	h.Write(buf[:])
	return jitterValue(float64(h.Sum64()%1_000_000) / 1_000_000)
}

// scale maps the jitter into a multiplicative factor in [1-amp, 1+amp].
func (j jitterValue) scale(amp float64) float64 {
	return 1 + amp*(2*float64(j)-1)
}

func putInt64(buf []byte, v int64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round5(v float64) float64 { return math.Round(v*100000) / 100000 }
