package colour

import (
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// LloydEngine clusters pixels with github.com/muesli/kmeans.
type LloydEngine struct {
	km kmeans.Kmeans
}

// NewLloydEngine creates a LloydEngine with the library defaults.
func NewLloydEngine() *LloydEngine {
	return &LloydEngine{km: kmeans.New()}
}

// rgbObservation adapts an RGB pixel to clusters.Observation.
type rgbObservation RGB

func (o rgbObservation) Coordinates() clusters.Coordinates {
	return clusters.Coordinates{float64(o.R), float64(o.G), float64(o.B)}
}

func (o rgbObservation) Distance(point clusters.Coordinates) float64 {
	return o.Coordinates().Distance(point)
}

// Cluster partitions the pixels into k clusters and returns their centres.
func (e *LloydEngine) Cluster(pixels []RGB, k int) ([]RGB, error) {
	if err := validateInput(pixels, k); err != nil {
		return nil, err
	}

	dataset := make(clusters.Observations, len(pixels))
	for i, p := range pixels {
		dataset[i] = rgbObservation(p)
	}

	partition, err := e.km.Partition(dataset, k)
	if err != nil {
		return nil, &ClusteringError{K: k, Reason: "partition failed", Err: err}
	}
	if len(partition) != k {
		return nil, &ClusteringError{K: k, Reason: "partition returned wrong cluster count"}
	}

	out := make([]RGB, len(partition))
	for i, c := range partition {
		if len(c.Center) < 3 {
			return nil, &ClusteringError{K: k, Reason: "cluster centre has too few dimensions"}
		}
		out[i] = point3D{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.rgb()
	}
	return out, nil
}
