package colour

import (
	"math"
	"math/rand"
)

// KMeansEngine implements clustering using k-means with k-means++ initialisation.
type KMeansEngine struct {
	maxIterations int
	convergence   float64
	maxSamples    int
	rng           *rand.Rand
}

// NewKMeansEngine creates a new KMeansEngine seeded for reproducible output.
func NewKMeansEngine(seed int64) *KMeansEngine {
	return &KMeansEngine{
		maxIterations: 20,
		convergence:   2.0,
		maxSamples:    5000,
		rng:           rand.New(rand.NewSource(seed)), // #nosec G404 -- clustering does not need crypto randomness
	}
}

// Cluster runs k-means over the pixels and returns k centroids in production order.
func (e *KMeansEngine) Cluster(pixels []RGB, k int) ([]RGB, error) {
	if err := validateInput(pixels, k); err != nil {
		return nil, err
	}

	points := toPoints(e.subsample(pixels))
	centroids := e.kmeans(points, k)

	out := make([]RGB, len(centroids))
	for i, c := range centroids {
		out[i] = c.rgb()
	}
	return out, nil
}

// point3D represents a point in 3D RGB color space.
type point3D struct {
	R, G, B float64
}

// distance calculates the Euclidean distance between two points in RGB space.
func (p point3D) distance(other point3D) float64 {
	dr := p.R - other.R
	dg := p.G - other.G
	db := p.B - other.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// rgb truncates the point to integer channels, clamped to the 8-bit range.
func (p point3D) rgb() RGB {
	clamp := func(v float64) uint8 {
		return uint8(math.Max(0, math.Min(maxChannel, v)))
	}
	return RGB{R: clamp(p.R), G: clamp(p.G), B: clamp(p.B)}
}

func toPoints(pixels []RGB) []point3D {
	points := make([]point3D, len(pixels))
	for i, p := range pixels {
		points[i] = point3D{R: float64(p.R), G: float64(p.G), B: float64(p.B)}
	}
	return points
}

// subsample strides through large pixel arrays to keep iteration cheap.
func (e *KMeansEngine) subsample(pixels []RGB) []RGB {
	if e.maxSamples <= 0 || len(pixels) <= e.maxSamples {
		return pixels
	}
	step := (len(pixels) + e.maxSamples - 1) / e.maxSamples
	out := make([]RGB, 0, e.maxSamples)
	for i := 0; i < len(pixels); i += step {
		out = append(out, pixels[i])
	}
	return out
}

// kmeans performs k-means clustering on the points.
func (e *KMeansEngine) kmeans(points []point3D, k int) []point3D {
	centroids := e.initializeCentroidsKMeansPlusPlus(points, k)
	assignments := make([]int, len(points))

	for iter := 0; iter < e.maxIterations; iter++ {
		changed := 0
		for i, point := range points {
			nearest := findNearestCentroid(point, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}

		// Fewer than 1% of assignments moved.
		if iter > 0 && float64(changed)/float64(len(points)) < 0.01 {
			break
		}

		newCentroids := e.recalculateCentroids(points, assignments, k)

		totalMovement := 0.0
		for i := range centroids {
			totalMovement += centroids[i].distance(newCentroids[i])
		}
		avgMovement := totalMovement / float64(k)

		centroids = newCentroids

		if avgMovement < e.convergence {
			break
		}
	}

	return centroids
}

// initializeCentroidsKMeansPlusPlus picks initial centroids with probability
// proportional to squared distance from the centroids chosen so far.
func (e *KMeansEngine) initializeCentroidsKMeansPlusPlus(points []point3D, k int) []point3D {
	if len(points) == 0 || k == 0 {
		return []point3D{}
	}

	centroids := make([]point3D, 0, k)
	centroids = append(centroids, points[e.rng.Intn(len(points))])

	distances := make([]float64, len(points))
	for len(centroids) < k {
		totalDistance := 0.0
		for i, point := range points {
			minDist := math.MaxFloat64
			for _, centroid := range centroids {
				if dist := point.distance(centroid); dist < minDist {
					minDist = dist
				}
			}
			distances[i] = minDist * minDist
			totalDistance += distances[i]
		}

		if totalDistance == 0 {
			// Subsampling dropped the remaining distinct colours; nudge the last centroid.
			last := centroids[len(centroids)-1]
			centroids = append(centroids, point3D{R: last.R + 0.1, G: last.G + 0.1, B: last.B + 0.1})
			continue
		}

		target := e.rng.Float64() * totalDistance
		cumulative := 0.0
		chosen := -1
		for i, dist := range distances {
			if dist == 0 {
				continue
			}
			chosen = i
			cumulative += dist
			if cumulative >= target {
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}

	return centroids
}

// findNearestCentroid finds the index of the nearest centroid to a point.
func findNearestCentroid(point point3D, centroids []point3D) int {
	minDist := math.MaxFloat64
	nearest := 0

	for i, centroid := range centroids {
		if dist := point.distance(centroid); dist < minDist {
			minDist = dist
			nearest = i
		}
	}

	return nearest
}

// recalculateCentroids moves each centroid to the mean of its assigned points.
func (e *KMeansEngine) recalculateCentroids(points []point3D, assignments []int, k int) []point3D {
	sums := make([]point3D, k)
	counts := make([]int, k)

	for i, point := range points {
		cluster := assignments[i]
		sums[cluster].R += point.R
		sums[cluster].G += point.G
		sums[cluster].B += point.B
		counts[cluster]++
	}

	centroids := make([]point3D, k)
	for i := 0; i < k; i++ {
		if counts[i] > 0 {
			centroids[i] = point3D{
				R: sums[i].R / float64(counts[i]),
				G: sums[i].G / float64(counts[i]),
				B: sums[i].B / float64(counts[i]),
			}
		} else {
			// Empty cluster: reseed from a random point.
			centroids[i] = points[e.rng.Intn(len(points))]
		}
	}

	return centroids
}
