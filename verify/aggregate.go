package verify

import (
	"math"

	"github.com/cqcert/cqcert/cqerr"
	"github.com/cqcert/cqcert/faults"
)

// LayerComparison is the per-layer running and finalized statistics
// comparing floating-point to fixed-point activations (spec §3 "Layer
// comparison").
type LayerComparison struct {
	LayerIndex uint32

	SampleCount uint64

	ErrorMaxMeasured float64
	errorSum         float64
	errorSumSq       float64

	ErrorMeanMeasured float64
	ErrorStdMeasured  float64

	ErrorBoundTheoretical float64
	BoundSatisfied        bool

	finalized bool
}

// NewLayerComparison starts a layer comparison against its theoretical
// bound. Grounded on cq_layer_comparison_init.
func NewLayerComparison(layerIndex uint32, bound float64) *LayerComparison {
	return &LayerComparison{LayerIndex: layerIndex, ErrorBoundTheoretical: bound}
}

// Update folds one sample's L-infinity error into the running
// count/max/sum/sum-of-squares. Grounded on cq_verify_layer_update.
func (l *LayerComparison) Update(errVal float64) {
	l.SampleCount++
	if errVal > l.ErrorMaxMeasured {
		l.ErrorMaxMeasured = errVal
	}
	l.errorSum += errVal
	l.errorSumSq += errVal * errVal
}

// Finalize computes mean and population standard deviation, guarding
// against negative variance from floating-point cancellation. Grounded on
// cq_verify_layer_finalize.
func (l *LayerComparison) Finalize() {
	if l.SampleCount == 0 {
		return
	}
	n := float64(l.SampleCount)
	l.ErrorMeanMeasured = l.errorSum / n
	variance := l.errorSumSq/n - l.ErrorMeanMeasured*l.ErrorMeanMeasured
	if variance < 0 {
		variance = 0
	}
	l.ErrorStdMeasured = math.Sqrt(variance)
	l.finalized = true
}

// CheckBound sets BoundSatisfied = (max measured <= theoretical bound),
// a weak inequality (equality passes), and raises BoundViolation on
// failure. Grounded on cq_verify_check_bounds.
func (l *LayerComparison) CheckBound(fl *faults.Set) bool {
	if l.ErrorMaxMeasured > l.ErrorBoundTheoretical {
		l.BoundSatisfied = false
		fl.Raise(faults.BoundViolation)
		return false
	}
	l.BoundSatisfied = true
	return true
}

// Report is the verification report (spec §3 "Verification report").
type Report struct {
	VerificationSetHash [32]byte
	SampleCount         uint64

	Layers []*LayerComparison

	TotalErrorTheoretical float64
	totalErrorMaxMeasured float64
	totalErrorSum         float64
	totalErrorSumSq       float64

	TotalErrorMean float64
	TotalErrorStd  float64

	AllBoundsSatisfied   bool
	TotalBoundSatisfied  bool

	Config Config
	Faults faults.Set

	sealed bool
}

// NewReport creates a verification report over the given per-layer
// comparisons and the end-to-end theoretical bound. Grounded on
// cq_verification_report_init.
func NewReport(verificationSetHash [32]byte, layers []*LayerComparison, totalBound float64, cfg Config) *Report {
	return &Report{
		VerificationSetHash:   verificationSetHash,
		Layers:                layers,
		TotalErrorTheoretical: totalBound,
		Config:                cfg,
	}
}

// UpdateSample folds one sample's end-to-end L-infinity error into the
// running total statistics and increments the sample counter. Grounded on
// cq_verify_total_update.
func (r *Report) UpdateSample(totalErr float64) error {
	if r.sealed {
		return cqerr.New(cqerr.SealedContext, "cannot update a sealed verification report")
	}
	r.SampleCount++
	if totalErr > r.totalErrorMaxMeasured {
		r.totalErrorMaxMeasured = totalErr
	}
	r.totalErrorSum += totalErr
	r.totalErrorSumSq += totalErr * totalErr
	return nil
}

// TotalErrorMaxMeasured exposes the running/finalized end-to-end maximum.
func (r *Report) TotalErrorMaxMeasured() float64 {
	return r.totalErrorMaxMeasured
}

// finalizeTotals computes end-to-end mean and population stddev. Grounded
// on cq_verify_total_finalize.
func (r *Report) finalizeTotals() {
	if r.SampleCount == 0 {
		return
	}
	n := float64(r.SampleCount)
	r.TotalErrorMean = r.totalErrorSum / n
	variance := r.totalErrorSumSq/n - r.TotalErrorMean*r.TotalErrorMean
	if variance < 0 {
		variance = 0
	}
	r.TotalErrorStd = math.Sqrt(variance)
}

// CheckAllBounds finalizes every layer's statistics, checks each layer's
// bound and the end-to-end bound (both weak inequalities), and seals the
// report. In LenientMode every layer is checked regardless of earlier
// violations so the final AllBoundsSatisfied reflects all samples,
// matching cq_verify_check_all_bounds; StrictMode stops finalizing further
// layers at the first violation, per spec §4.D.
func (r *Report) CheckAllBounds() error {
	if r.sealed {
		return cqerr.New(cqerr.SealedContext, "verification report already finalized")
	}

	r.AllBoundsSatisfied = true
	for _, layer := range r.Layers {
		layer.Finalize()
		if !layer.CheckBound(&r.Faults) {
			r.AllBoundsSatisfied = false
			if r.Config.Mode == StrictMode {
				break
			}
		}
	}

	r.finalizeTotals()

	if r.totalErrorMaxMeasured > r.TotalErrorTheoretical {
		r.TotalBoundSatisfied = false
		r.Faults.Raise(faults.BoundViolation)
	} else {
		r.TotalBoundSatisfied = true
	}

	r.sealed = true
	return nil
}

// Sealed reports whether CheckAllBounds has run.
func (r *Report) Sealed() bool {
	return r.sealed
}
