// Package heatmap aggregates report coordinates into S2 cells for the map
// dashboard. The cell level adapts to the requested viewport so a zoomed-out
// map gets coarse clusters and a street-level view gets individual points.
package heatmap

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/nagrik-gov/portal/internal/report/domain"
)

// Viewport is the visible map rectangle.
type Viewport struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LngMin float64 `json:"lng_min"`
	LngMax float64 `json:"lng_max"`
}

// Center returns the viewport midpoint.
func (vp Viewport) Center() (lat, lng float64) {
	return (vp.LatMin + vp.LatMax) / 2, (vp.LngMin + vp.LngMax) / 2
}

// Cluster is one aggregated cell of the heatmap.
type Cluster struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int64   `json:"count"`
}

const (
	expectedCells = 160
	minLevel      = 6
	maxLevel      = 16
)

// cellBaseLevel picks the S2 level that yields roughly expectedCells cells
// across the viewport.
func cellBaseLevel(vp Viewport) int {
	minLL := s2.LatLngFromDegrees(vp.LatMin, vp.LngMin)
	maxLL := s2.LatLngFromDegrees(vp.LatMax, vp.LngMax)

	rect := s2.Rect{
		Lat: r1.Interval{Lo: minLL.Lat.Radians(), Hi: maxLL.Lat.Radians()},
		Lng: s1.Interval{Lo: minLL.Lng.Radians(), Hi: maxLL.Lng.Radians()},
	}
	vpArea := rect.Area()

	centerLat, centerLng := vp.Center()
	centerCell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(centerLat, centerLng))

	for lv := maxLevel; lv >= minLevel; lv-- {
		cell := s2.CellFromCellID(centerCell.Parent(lv))
		if vpArea/cell.ApproxArea() < expectedCells {
			return lv
		}
	}
	return minLevel
}

type unit struct {
	count    int64
	origCell s2.CellID
}

// Aggregator buckets points into S2 cells at a viewport-derived level.
type Aggregator struct {
	level int
	units map[s2.CellID]*unit
}

// NewAggregator creates an aggregator for a viewport.
func NewAggregator(vp Viewport) *Aggregator {
	return &Aggregator{
		level: cellBaseLevel(vp),
		units: make(map[s2.CellID]*unit),
	}
}

// Level returns the chosen S2 cell level.
func (a *Aggregator) Level() int {
	return a.level
}

// AddPoint buckets one coordinate pair.
func (a *Aggregator) AddPoint(lat, lng float64) {
	pc := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng))
	parent := pc.Parent(a.level)
	u, ok := a.units[parent]
	if !ok {
		u = &unit{}
		a.units[parent] = u
	}
	u.count++
	u.origCell = pc
}

// Clusters returns the aggregated cells. A cell with a single point keeps
// that point's exact position instead of the cell center.
func (a *Aggregator) Clusters() []Cluster {
	out := make([]Cluster, 0, len(a.units))
	for cell, u := range a.units {
		ll := cell.LatLng()
		if u.count == 1 {
			ll = u.origCell.LatLng()
		}
		out = append(out, Cluster{
			Lat:   ll.Lat.Degrees(),
			Lng:   ll.Lng.Degrees(),
			Count: u.count,
		})
	}
	return out
}

// Build aggregates the mapped reports that fall inside the viewport,
// skipping reports without coordinates.
func Build(vp Viewport, reports []*domain.Report) []Cluster {
	agg := NewAggregator(vp)
	for _, r := range reports {
		if r.Lat == 0 && r.Lng == 0 {
			continue
		}
		if r.Lat < vp.LatMin || r.Lat > vp.LatMax || r.Lng < vp.LngMin || r.Lng > vp.LngMax {
			continue
		}
		agg.AddPoint(r.Lat, r.Lng)
	}
	return agg.Clusters()
}
