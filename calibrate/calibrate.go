// Package calibrate implements the calibrator ("The Observer", spec §4.C):
// online min/max statistics over streamed activations, coverage metrics,
// and the range-containment veto. Grounded on
// original_source/src/calibrate/calibrate.c.
package calibrate

import (
	"math"
	"sort"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/faults"
	"github.com/cqcert/cqcert/model"
)

// Config carries the calibrator's thresholds (spec §4.C "Global metrics",
// §9 Percentile fallback).
type Config struct {
	DegenerateEpsilon       float64
	CoverageMinThreshold    float64
	CoverageP10Threshold    float64
	// PercentileFallbackToMin forces the degraded min-only percentile path
	// documented in spec.md §9's Open Question, for parity testing against
	// the source's allocation-failure fallback. The normal path (false)
	// always takes the sorted-percentile branch — Go slices do not fail
	// allocation the way a malloc call can.
	PercentileFallbackToMin bool
}

// DefaultConfig matches the source's default degenerate epsilon of 1e-7
// and thresholds of 0.5/0.3 for C_min/C_p10 (conservative; callers should
// tune these for their model).
func DefaultConfig() Config {
	return Config{
		DegenerateEpsilon:    1e-7,
		CoverageMinThreshold: 0.5,
		CoverageP10Threshold: 0.3,
	}
}

// TensorStats tracks one tensor's observed range against its claimed-safe
// range (spec §3 "Tensor statistics").
type TensorStats struct {
	TensorID   uint32
	LayerIndex uint32

	SafeRange model.Range

	ObservedLo float64
	ObservedHi float64
	hasSample  bool

	Coverage    float64
	Degenerate  bool
	RangeVeto   bool
}

// NewTensorStats initializes a tensor's stats with the observed range set
// to +/-inf so the first finite sample replaces both endpoints
// unconditionally, matching cq_tensor_stats_init.
func NewTensorStats(tensorID, layerIndex uint32, safeRange model.Range) *TensorStats {
	return &TensorStats{
		TensorID:   tensorID,
		LayerIndex: layerIndex,
		SafeRange:  safeRange,
		ObservedLo: math.Inf(1),
		ObservedHi: math.Inf(-1),
	}
}

// Update folds one sample into the running min/max, ignoring NaN/Inf. The
// update is commutative and associative, so samples may arrive in any
// order or batching (spec §4.C "Per-tensor update").
func (t *TensorStats) Update(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	t.hasSample = true
	if v < t.ObservedLo {
		t.ObservedLo = v
	}
	if v > t.ObservedHi {
		t.ObservedHi = v
	}
}

// UpdateAll folds a batch of samples.
func (t *TensorStats) UpdateAll(vs []float64) {
	for _, v := range vs {
		t.Update(v)
	}
}

// Finalize computes coverage, the degeneracy flag, and the range veto.
// Grounded on cq_tensor_compute_coverage / cq_tensor_check_range_veto.
func (t *TensorStats) Finalize(cfg Config) {
	observedRange := t.ObservedHi - t.ObservedLo
	safeRange := t.SafeRange.Width()

	if math.Abs(observedRange) < cfg.DegenerateEpsilon || math.Abs(safeRange) < cfg.DegenerateEpsilon {
		t.Degenerate = true
		t.Coverage = 1.0
	} else {
		t.Degenerate = false
		t.Coverage = observedRange / safeRange
	}

	t.RangeVeto = t.ObservedLo < t.SafeRange.Lo || t.ObservedHi > t.SafeRange.Hi
}

// Report is the calibration report (spec §3 "Calibration report").
type Report struct {
	DatasetHash [32]byte
	SampleCount uint64

	Tensors []*TensorStats

	CoverageMin  float64
	CoverageP10  float64
	CoverageMean float64

	RangeVetoTriggered    bool
	CoverageVetoTriggered bool

	Faults faults.Set

	sealed bool
}

// NewReport creates an open calibration report over the given tensors.
func NewReport(datasetHash [32]byte, tensors []*TensorStats) *Report {
	return &Report{DatasetHash: datasetHash, Tensors: tensors}
}

// ObserveSample increments the monotonic sample counter. Call once per
// calibration-set sample.
func (r *Report) ObserveSample() error {
	if r.sealed {
		return cqerr.New(cqerr.SealedContext, "cannot update a sealed calibration report")
	}
	r.SampleCount++
	return nil
}

// Finalize is the single open->sealed transition (spec §4.C "Stateful
// invariants"): it finalizes every tensor, computes global coverage
// metrics, checks the range veto (fatal) and coverage veto (warning), and
// seals the report against further updates. Grounded on
// cq_calibration_report_finalize.
func (r *Report) Finalize(cfg Config) error {
	if r.sealed {
		return cqerr.New(cqerr.SealedContext, "calibration report already finalized")
	}

	for _, t := range r.Tensors {
		t.Finalize(cfg)
		if t.RangeVeto {
			r.RangeVetoTriggered = true
			r.Faults.Raise(faults.RangeExceed)
		}
	}

	r.computeGlobalCoverage(cfg)

	if r.CoverageMin < cfg.CoverageMinThreshold || r.CoverageP10 < cfg.CoverageP10Threshold {
		r.CoverageVetoTriggered = true
		// Coverage veto is a warning, not a fault (spec §4.C).
	}

	r.sealed = true
	return nil
}

// computeGlobalCoverage computes C_min, C_mean, and C_p10 (ascending order,
// index floor(0.10*N) clipped to [0,N-1], no interpolation). Grounded on
// cq_calibration_compute_global_coverage.
func (r *Report) computeGlobalCoverage(cfg Config) {
	n := len(r.Tensors)
	if n == 0 {
		return
	}

	sum := 0.0
	minCov := math.Inf(1)
	coverages := make([]float64, n)
	for i, t := range r.Tensors {
		coverages[i] = t.Coverage
		sum += t.Coverage
		if t.Coverage < minCov {
			minCov = t.Coverage
		}
	}

	r.CoverageMean = sum / float64(n)
	r.CoverageMin = minCov

	if cfg.PercentileFallbackToMin {
		r.CoverageP10 = minCov
		return
	}

	sort.Float64s(coverages)
	idx := int(float64(n) * 0.10)
	if idx >= n {
		idx = n - 1
	}
	r.CoverageP10 = coverages[idx]
}

// Sealed reports whether Finalize has run.
func (r *Report) Sealed() bool {
	return r.sealed
}
