package colour

import (
	"fmt"
	"slices"
)

// ClusterEngine partitions a pixel population into k representative colours.
type ClusterEngine interface {
	// Cluster returns exactly k centroids for the given pixels.
	Cluster(pixels []RGB, k int) ([]RGB, error)
}

// Algorithm represents the clustering algorithm type.
type Algorithm string

const (
	// AlgorithmKMeans uses the built-in k-means with k-means++ initialisation.
	AlgorithmKMeans Algorithm = "kmeans"

	// AlgorithmLloyd uses Lloyd's iteration from github.com/muesli/kmeans.
	AlgorithmLloyd Algorithm = "lloyd"
)

// MaxClusters is the largest cluster count accepted by the engines.
const MaxClusters = 256

// ValidAlgorithms returns a list of valid algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmKMeans,
		AlgorithmLloyd,
	}
}

// IsValidAlgorithm checks if the given algorithm name is valid.
func IsValidAlgorithm(alg Algorithm) bool {
	return slices.Contains(ValidAlgorithms(), alg)
}

// NewEngine creates a ClusterEngine for the algorithm.
// The seed makes AlgorithmKMeans reproducible; AlgorithmLloyd ignores it.
func NewEngine(alg Algorithm, seed int64) (ClusterEngine, error) {
	switch alg {
	case AlgorithmKMeans:
		return NewKMeansEngine(seed), nil
	case AlgorithmLloyd:
		return NewLloydEngine(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", alg, ValidAlgorithms())
	}
}

// ClusteringError reports that clustering could not produce k centroids.
type ClusteringError struct {
	K      int
	Reason string
	Err    error
}

func (e *ClusteringError) Error() string {
	msg := fmt.Sprintf("clustering with k=%d failed: %s", e.K, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClusteringError) Unwrap() error {
	return e.Err
}

// validateInput checks the preconditions shared by every engine.
func validateInput(pixels []RGB, k int) error {
	if k < 1 {
		return &ClusteringError{K: k, Reason: "cluster count must be at least 1"}
	}
	if k > MaxClusters {
		return &ClusteringError{K: k, Reason: fmt.Sprintf("cluster count too large (maximum: %d)", MaxClusters)}
	}
	if len(pixels) == 0 {
		return &ClusteringError{K: k, Reason: "no pixels to cluster"}
	}
	if distinct := distinctCount(pixels); k > distinct {
		return &ClusteringError{K: k, Reason: fmt.Sprintf("only %d distinct colours in sample", distinct)}
	}
	return nil
}
