package ports

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"gogrowth/domain/growth"
)

// SolveProblem describes one constrained nonlinear least-squares problem:
// minimize sum_t [w_t · (Data_t − Eval(Time_t, θ))]² over the varying
// parameters, holding non-varying specs at their guess values and keeping
// every parameter inside its declared bounds.
type SolveProblem struct {
	// Specs defines the parameter vector: order, guesses, bounds, vary flags.
	Specs []growth.ParamSpec

	// Eval evaluates the model at time t for a full parameter assignment
	// (free and fixed values, keyed by spec name).
	Eval func(t float64, values map[string]float64) float64

	// Jac optionally returns the analytic partial derivatives of Eval with
	// respect to each parameter name. Nil means the solver differentiates
	// numerically; the analytic path is an acceleration, not a requirement.
	Jac func(t float64, values map[string]float64) map[string]float64

	Time []float64
	Data []float64

	// Weights multiplies each residual; nil requests an unweighted fit.
	Weights []float64
}

// SolveResult carries everything downstream statistics need from one fit.
type SolveResult struct {
	// Values holds the best-fit value of every spec, fixed ones included.
	Values map[string]float64

	// FreeNames lists the varied parameters in covariance row order.
	FreeNames []string

	// Covar is the covariance matrix of the free parameters. Nil when the
	// Jacobian was singular at the solution; callers that need it must
	// treat nil as an unusable fit for sampling purposes.
	Covar *mat.SymDense

	// Chisqr is the weighted residual sum of squares at the solution.
	Chisqr float64

	NData  int
	NVarys int
}

// Solver is the external constrained nonlinear least-squares dependency.
// Implementations do not decide model semantics; non-convergence surfaces as
// a poor Chisqr, not as an error.
type Solver interface {
	Solve(ctx context.Context, p SolveProblem) (*SolveResult, error)
}
