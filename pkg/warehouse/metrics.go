package warehouse

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports store activity to Prometheus.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	placements *prometheus.CounterVec
	rejections *prometheus.CounterVec
	removals   prometheus.Counter
	freeSlots  prometheus.Gauge
	freeRanges prometheus.Gauge
}

// NewMetrics creates the warehouse collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "placements_total",
			Help:      "Products placed, by category.",
		}, []string{"category"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "rejections_total",
			Help:      "Products rejected, by reason.",
		}, []string{"reason"}),
		removals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "removals_total",
			Help:      "Products removed.",
		}),
		freeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "warehouse",
			Name:      "free_slots",
			Help:      "Number of free slots.",
		}),
		freeRanges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "warehouse",
			Name:      "free_ranges",
			Help:      "Number of maximal free ranges in the free map.",
		}),
	}

	for _, c := range []prometheus.Collector{m.placements, m.rejections, m.removals, m.freeSlots, m.freeRanges} {
		err := reg.Register(c)
		if err != nil {
			return nil, fmt.Errorf("warehouse: register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observePlacement(kind Kind, free *FreeMap) {
	if m == nil {
		return
	}

	m.placements.WithLabelValues(kind.String()).Inc()
	m.observeFree(free)
}

func (m *Metrics) observeRemoval(free *FreeMap) {
	if m == nil {
		return
	}

	m.removals.Inc()
	m.observeFree(free)
}

func (m *Metrics) observeRejection(err error) {
	if m == nil {
		return
	}

	m.rejections.WithLabelValues(RejectionReason(err)).Inc()
}

func (m *Metrics) observeFree(free *FreeMap) {
	if m == nil {
		return
	}

	m.freeSlots.Set(float64(free.FreeSlots()))
	m.freeRanges.Set(float64(free.Len()))
}

// RejectionReason returns a short label for an [Store.AddProduct] error.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNotAllowed):
		return "not_allowed"
	case errors.Is(err, ErrFull):
		return "full"
	case errors.Is(err, ErrFragile):
		return "fragile"
	case errors.Is(err, ErrTooBig):
		return "too_big"
	case errors.Is(err, ErrOccupied):
		return "occupied"
	case errors.Is(err, ErrInvalidCoords):
		return "invalid_coords"
	default:
		return "other"
	}
}
