// Package scoring turns resolved predictions into accuracy scores and keeps
// forecaster reputation in sync with the score ledger.
package scoring

// BrierScore is the squared error between a stated probability and the
// realized binary outcome. 0 is a perfect call, 1 maximally wrong; 0.25 is
// the score of a coin-flip answer either way.
func BrierScore(prediction, outcome float64) float64 {
	d := prediction - outcome
	return d * d
}
