// Package stats implements the stateless statistical engine behind active
// top-K ranking: the Bradley-Terry preference model, Bayesian MAP fitting
// with Laplace uncertainty, two interchangeable top-K uncertainty
// estimators, information-gain pair selection, the stopping policies, and
// the advisory remaining-rounds forecaster.
//
// Everything in this package is a pure function of its inputs (the Monte
// Carlo estimator included, via explicit seed derivation), which is what
// allows the compute backend to memoize results and share its cache across
// sessions with no consistency protocol beyond matching a from-scratch
// computation.
package stats
