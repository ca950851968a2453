// Package fit implements a bounded Levenberg-Marquardt least-squares solver.
//
// Bounds are enforced with the MINUIT parameter transforms: the solver works
// on unconstrained internal coordinates and maps them onto [Min, Max] before
// every residual evaluation, so returned parameters always satisfy their
// bounds. Non-finite residuals are kept in the residual vector but excluded
// from the cost and from the normal equations.
package fit
