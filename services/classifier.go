package services

import (
	"math/rand"
	"sync"

	"vidsense/models"
)

// Classifier decides the sensitivity outcome for a fully processed video.
// The default implementation is a weighted draw standing in for a real
// content analyzer.
type Classifier interface {
	Classify(videoPath string) (string, error)
}

type weightedRandomClassifier struct {
	mu          sync.Mutex
	rng         *rand.Rand
	safeWeight  int
	totalWeight int
}

// NewWeightedRandomClassifier draws safe with probability
// safeWeight/totalWeight and flagged otherwise.
func NewWeightedRandomClassifier(seed int64, safeWeight, totalWeight int) Classifier {
	if totalWeight <= 0 {
		safeWeight, totalWeight = 3, 4
	}
	return &weightedRandomClassifier{
		rng:         rand.New(rand.NewSource(seed)),
		safeWeight:  safeWeight,
		totalWeight: totalWeight,
	}
}

func (c *weightedRandomClassifier) Classify(string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng.Intn(c.totalWeight) < c.safeWeight {
		return models.SensitivitySafe, nil
	}
	return models.SensitivityFlagged, nil
}
