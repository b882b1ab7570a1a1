// Package competition ranks competition participants from weighted
// engagement events and splits a prize pool across the top ranks.
//
// Everything here is a pure function of its inputs and is safe to call from
// any number of goroutines.
package competition

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// Reference weighting.
const (
	defaultVoteWeight     = 1.0
	defaultPlayWeight     = 0.5
	defaultLikeWeight     = 2.0
	defaultDownloadWeight = 5.0
)

// Weights maps each event kind to the points one event of that kind is worth.
type Weights map[model.EventKind]float64

// DefaultWeights returns the reference weighting
// {vote: 1, play: 0.5, like: 2, download: 5}.
func DefaultWeights() Weights {
	return Weights{
		model.KindVote:     defaultVoteWeight,
		model.KindPlay:     defaultPlayWeight,
		model.KindLike:     defaultLikeWeight,
		model.KindDownload: defaultDownloadWeight,
	}
}

// ParseWeights converts a configuration map (string keys) into Weights.
// Unknown keys are rejected.
func ParseWeights(raw map[string]float64) (Weights, error) {
	const op = "competition.parse_weights"
	w := make(Weights, len(raw))
	for name, v := range raw {
		k, err := model.ParseEventKind(name)
		if err != nil {
			return nil, validation.New(op, "weights", err.Error())
		}
		w[k] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks that every kind has a finite, non-negative weight.
func (w Weights) Validate() error {
	const op = "competition.validate_weights"
	for k := range w {
		if !k.Valid() {
			return validation.Newf(op, "weights", "unknown event kind %q", string(k))
		}
	}
	for _, k := range model.Kinds() {
		v, ok := w[k]
		if !ok {
			return validation.Newf(op, "weights", "missing weight for %q", string(k))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return validation.Newf(op, "weights", "weight for %q must be a non-negative number, got %v", string(k), v)
		}
	}
	return nil
}

// clone returns an independent copy.
func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// String renders weights in canonical kind order, e.g. "vote=1 play=0.5".
func (w Weights) String() string {
	parts := make([]string, 0, len(w))
	for _, k := range model.Kinds() {
		if v, ok := w[k]; ok {
			parts = append(parts, string(k)+"="+strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return strings.Join(parts, " ")
}
