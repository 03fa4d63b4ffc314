package Helmholtz2D

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/gopinn/InputParameters"
	"github.com/notargets/gopinn/SIREN"
	"github.com/notargets/gopinn/utils"
)

type TrainerState uint8

const (
	StateInitialized TrainerState = iota
	StateTraining
	StateConverged
	StateStopped
)

func (ts TrainerState) Print() string {
	switch ts {
	case StateInitialized:
		return "Initialized"
	case StateTraining:
		return "Training"
	case StateConverged:
		return "Converged"
	case StateStopped:
		return "Stopped"
	}
	return "Unknown"
}

type Outcome uint8

const (
	NonConvergence Outcome = iota
	Converged
	NumericalDivergence
	TimeLimit
	Plateau
)

func (oc Outcome) Print() string {
	switch oc {
	case NonConvergence:
		return "Iteration budget exhausted without convergence"
	case Converged:
		return "Converged"
	case NumericalDivergence:
		return "Numerical divergence"
	case TimeLimit:
		return "Wall clock limit reached"
	case Plateau:
		return "Loss plateau"
	}
	return "Unknown"
}

// Report summarizes one call to Train or Refine. Err is a *DivergenceError
// or *NonConvergenceError when the outcome calls for one.
type Report struct {
	Outcome    Outcome
	Iterations int // Iterations completed by this call
	Total      int // Iterations completed over the life of the trainer
	Loss       float64
	Elapsed    time.Duration
	Err        error
}

type TrainingRecord struct {
	Iteration    int
	Loss         float64
	GradNorm     float64
	LearningRate float64
	Elapsed      time.Duration
}

type Trainer struct {
	IP        *InputParameters.InputParametersHelmholtz
	Net       *SIREN.Network
	Engine    *ResidualEngine
	Sampler   *Sampler
	Opt       *Adam
	State     TrainerState
	LR        float64 // Current learning rate, decays by IP.LRDecay per iteration
	Verbose   bool
	Out       io.Writer
	history   []TrainingRecord
	batch     CollocationSet
	batchAge  int
	haveBatch bool
	diverged  *DivergenceError
	grad      []float64
	elapsed   time.Duration // Training time accumulated over previous calls
}

// NewTrainer validates the input parameters and builds a freshly initialized network
func NewTrainer(ip *InputParameters.InputParametersHelmholtz, ProcLimit int, verbose bool) (tr *Trainer, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	return NewTrainerWithNetwork(ip, SIREN.NewNetwork(SIREN.NewConfig(ip)), ProcLimit, verbose)
}

// NewTrainerWithNetwork continues from an existing network, for example one
// read from a checkpoint, which must match the network the parameters describe
func NewTrainerWithNetwork(ip *InputParameters.InputParametersHelmholtz, net *SIREN.Network,
	ProcLimit int, verbose bool) (tr *Trainer, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	if err = net.CheckConfig(ip); err != nil {
		return
	}
	tr = &Trainer{
		IP:      ip,
		Net:     net,
		Engine:  NewResidualEngine(ip, net, ProcLimit),
		Sampler: NewSampler(ip),
		Opt:     NewAdam(net.NumParams()),
		State:   StateInitialized,
		LR:      ip.LearningRate,
		Verbose: verbose,
		Out:     os.Stdout,
		grad:    make([]float64, net.NumParams()),
	}
	return
}

// Batch returns the collocation set used by the next iteration, drawing a
// new one when the resampling period has elapsed
func (tr *Trainer) Batch() CollocationSet {
	every := tr.IP.ResampleEvery
	if !tr.haveBatch || (every > 0 && tr.batchAge >= every) {
		tr.batch = tr.Sampler.Draw()
		tr.batchAge = 0
		tr.haveBatch = true
	}
	return tr.batch
}

func (tr *Trainer) diverging(loss float64) bool {
	return !utils.IsFinite(loss) || loss > tr.IP.DivergenceBound
}

// Run trains for MaxIterations followed by the optional L-BFGS refinement,
// which is skipped once training has converged or stopped on an error or limit
func (tr *Trainer) Run() (rpt *Report) {
	if tr.Verbose {
		tr.PrintInitialization()
	}
	rpt = tr.Train(tr.IP.MaxIterations)
	if tr.IP.LBFGSIterations > 0 && (rpt.Outcome == NonConvergence || rpt.Outcome == Plateau) {
		ref := tr.Refine(tr.IP.LBFGSIterations)
		ref.Elapsed += rpt.Elapsed
		rpt = ref
	}
	if tr.Verbose {
		tr.PrintFinal(rpt)
	}
	return
}

/*
	Train runs up to iterations optimizer steps and may be called repeatedly,
	each call continues from the current parameters and appends to the
	history. A call with zero iterations changes nothing. After a divergence
	the parameters are no longer usable and Train returns the same error
	without iterating.
*/
func (tr *Trainer) Train(iterations int) (rpt *Report) {
	var (
		start   = time.Now()
		limit   = tr.IP.Duration()
		params  = tr.Net.Params()
		grad    = tr.grad
		outcome = NonConvergence
		steps   int
		done    bool
	)
	rpt = &Report{}
	defer func() {
		rpt.Outcome = outcome
		rpt.Iterations = steps
		rpt.Total = len(tr.history)
		rpt.Loss = tr.lastLoss()
		rpt.Elapsed = time.Since(start)
		tr.elapsed += rpt.Elapsed
		if outcome == NonConvergence && rpt.Err == nil {
			rpt.Err = &NonConvergenceError{
				Iterations: rpt.Total,
				Loss:       rpt.Loss,
				Threshold:  tr.IP.ConvergenceThreshold,
			}
		}
	}()
	if tr.diverged != nil {
		outcome, rpt.Err = NumericalDivergence, tr.diverged
		return
	}
	if iterations <= 0 {
		return
	}
	tr.State = StateTraining
	for steps < iterations && !done {
		if limit > 0 && time.Since(start) >= limit {
			outcome = TimeLimit
			tr.State = StateStopped
			break
		}
		loss := tr.Engine.LossAndGrad(tr.Batch(), grad)
		if tr.diverging(loss) || !utils.IsFinite(grad) {
			tr.diverged = &DivergenceError{Iteration: len(tr.history), Loss: loss}
			outcome, rpt.Err = NumericalDivergence, tr.diverged
			tr.State = StateStopped
			if tr.Verbose {
				fmt.Fprintf(tr.Out, "%s\n", tr.diverged.Error())
			}
			break
		}
		norm := ClipGradient(grad, tr.IP.GradClip)
		tr.Opt.Step(params, grad, tr.LR)
		tr.history = append(tr.history, TrainingRecord{
			Iteration:    len(tr.history),
			Loss:         loss,
			GradNorm:     norm,
			LearningRate: tr.LR,
			Elapsed:      tr.elapsed + time.Since(start),
		})
		tr.LR *= tr.IP.LRDecay
		tr.batchAge++
		steps++
		if tr.Verbose && (steps == 1 || len(tr.history)%tr.logFrequency() == 0) {
			tr.PrintUpdate(tr.history[len(tr.history)-1])
		}
		switch {
		case tr.converged():
			outcome, done = Converged, true
			tr.State = StateConverged
		case tr.plateaued():
			outcome, done = Plateau, true
			tr.State = StateStopped
		}
	}
	if !done && outcome == NonConvergence {
		tr.State = StateStopped
	}
	return
}

func (tr *Trainer) logFrequency() int {
	if tr.IP.LogFrequency < 1 {
		return 1
	}
	return tr.IP.LogFrequency
}

// converged is true when the mean loss over the last ConvergenceWindow
// iterations is below the threshold
func (tr *Trainer) converged() bool {
	w := tr.IP.ConvergenceWindow
	if w < 1 || len(tr.history) < w {
		return false
	}
	return stat.Mean(tr.LossHistory()[len(tr.history)-w:], nil) < tr.IP.ConvergenceThreshold
}

// plateaued is true when the mean loss of the last PlateauWindow iterations
// improved on the window before it by less than PlateauTolerance, relatively
func (tr *Trainer) plateaued() bool {
	var (
		w = tr.IP.PlateauWindow
		n = len(tr.history)
	)
	if w < 1 || n < 2*w {
		return false
	}
	loss := tr.LossHistory()
	prev := stat.Mean(loss[n-2*w:n-w], nil)
	cur := stat.Mean(loss[n-w:], nil)
	return (prev-cur)/prev < tr.IP.PlateauTolerance
}

// refineRecorder appends every major L-BFGS iteration to the training history
type refineRecorder struct {
	tr    *Trainer
	start time.Time
	steps int
}

func (rr *refineRecorder) Init() error { return nil }

func (rr *refineRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration == 0 {
		return nil
	}
	var norm float64
	if loc.Gradient != nil {
		norm = floats.Norm(loc.Gradient, 2)
	}
	rr.tr.history = append(rr.tr.history, TrainingRecord{
		Iteration: len(rr.tr.history),
		Loss:      loc.F,
		GradNorm:  norm,
		Elapsed:   rr.tr.elapsed + time.Since(rr.start),
	})
	rr.steps++
	if rr.tr.Verbose && rr.steps%rr.tr.logFrequency() == 0 {
		rr.tr.PrintUpdate(rr.tr.history[len(rr.tr.history)-1])
	}
	return nil
}

/*
	Refine polishes the parameters with L-BFGS on a single fixed batch. The
	network keeps the best parameters found. Non finite losses seen by the line
	search are reported as divergence, in which case the parameters and the
	history are restored to their state on entry.
*/
func (tr *Trainer) Refine(iterations int) (rpt *Report) {
	var (
		start = time.Now()
		cs    = tr.Batch()
		x0    = tr.Net.CopyParams()
		h0    = len(tr.history)
		rec   = &refineRecorder{tr: tr, start: start}
	)
	rpt = &Report{Outcome: NonConvergence}
	if tr.diverged != nil {
		rpt.Outcome, rpt.Err = NumericalDivergence, tr.diverged
		return
	}
	if iterations <= 0 {
		rpt.Total, rpt.Loss = len(tr.history), tr.lastLoss()
		return
	}
	tr.State = StateTraining
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			tr.Net.SetParams(x)
			return tr.Engine.Loss(cs)
		},
		Grad: func(grad, x []float64) {
			tr.Net.SetParams(x)
			tr.Engine.LossAndGrad(cs, grad)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: iterations,
		Converger: &optimize.FunctionConverge{
			Relative:   tr.IP.PlateauTolerance,
			Iterations: tr.IP.ConvergenceWindow,
		},
		Recorder: rec,
	}
	if limit := tr.IP.Duration(); limit > 0 {
		settings.Runtime = limit
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	rpt.Iterations = rec.steps
	rpt.Elapsed = time.Since(start)
	tr.elapsed += rpt.Elapsed
	switch {
	case result == nil || tr.diverging(result.F):
		tr.Net.SetParams(x0)
		tr.history = tr.history[:h0]
		rpt.Iterations = 0
		loss := math.NaN()
		if result != nil {
			loss = result.F
		}
		tr.diverged = &DivergenceError{Iteration: len(tr.history), Loss: loss}
		rpt.Outcome, rpt.Err = NumericalDivergence, tr.diverged
		tr.State = StateStopped
	default:
		tr.Net.SetParams(result.X)
		if tr.converged() || result.F < tr.IP.ConvergenceThreshold {
			rpt.Outcome = Converged
			tr.State = StateConverged
		} else {
			tr.State = StateStopped
			if result.Status == optimize.RuntimeLimit {
				rpt.Outcome = TimeLimit
			}
		}
	}
	if rpt.Outcome == NonConvergence {
		rpt.Err = &NonConvergenceError{
			Iterations: len(tr.history),
			Loss:       tr.lastLoss(),
			Threshold:  tr.IP.ConvergenceThreshold,
		}
		if err != nil && tr.Verbose {
			fmt.Fprintf(tr.Out, "L-BFGS: %s\n", err.Error())
		}
	}
	rpt.Total = len(tr.history)
	rpt.Loss = tr.lastLoss()
	return
}

func (tr *Trainer) lastLoss() float64 {
	if len(tr.history) == 0 {
		return math.NaN()
	}
	return tr.history[len(tr.history)-1].Loss
}

func (tr *Trainer) History() []TrainingRecord { return tr.history }

func (tr *Trainer) LossHistory() (loss []float64) {
	loss = make([]float64, len(tr.history))
	for i, rec := range tr.history {
		loss[i] = rec.Loss
	}
	return
}

// MovingAverage returns the trailing mean of the loss history over window iterations
func (tr *Trainer) MovingAverage(window int) (avg []float64) {
	return MovingAverage(tr.LossHistory(), window)
}

func MovingAverage(loss []float64, window int) (avg []float64) {
	if window < 1 {
		window = 1
	}
	avg = make([]float64, len(loss))
	for i := range loss {
		i1 := i - window + 1
		if i1 < 0 {
			i1 = 0
		}
		avg[i] = stat.Mean(loss[i1:i+1], nil)
	}
	return
}

func (tr *Trainer) PrintInitialization() {
	var (
		ip = tr.IP
		w  = tr.Out
	)
	fmt.Fprintf(w, "Helmholtz Equation in 2 Dimensions, %s\n", ip.Geometry().Print())
	fmt.Fprintf(w, "Using %d go routines in parallel\n",
		utils.ParallelDegreeFor(tr.Engine.ProcLimit, ip.BatchSize))
	fmt.Fprintf(w, "SIREN [%d x %d], %d parameters, Omega0 = %8.5f, %8.5f\n",
		ip.NetworkDepth, ip.NetworkWidth, tr.Net.NumParams(), ip.Omega0First, ip.Omega0Hidden)
	fmt.Fprintf(w, "Angular Frequency = %8.5f, Batch Size = %d, Learning Rate = %8.5f\n",
		ip.Omega(), ip.BatchSize, tr.LR)
	fmt.Fprintf(w, "Training until Max Iterations = %d, Convergence Threshold = %8.2e\n",
		ip.MaxIterations, ip.ConvergenceThreshold)
	fmt.Fprintf(w, "    iter        Loss    GradNorm          LR     Elapsed\n")
}

func (tr *Trainer) PrintUpdate(rec TrainingRecord) {
	fmt.Fprintf(tr.Out, "%8d%12.4e%12.4e%12.4e%12.3fs\n",
		rec.Iteration, rec.Loss, rec.GradNorm, rec.LearningRate, rec.Elapsed.Seconds())
}

func (tr *Trainer) PrintFinal(rpt *Report) {
	var (
		w = tr.Out
	)
	fmt.Fprintf(w, "\n%s after %d iterations, final loss = %12.4e\n", rpt.Outcome.Print(), rpt.Total, rpt.Loss)
	if rpt.Err != nil {
		fmt.Fprintf(w, "%s\n", rpt.Err.Error())
	}
	if rpt.Iterations > 0 {
		rate := float64(rpt.Elapsed.Microseconds()) / float64(rpt.Iterations*tr.IP.BatchSize)
		fmt.Fprintf(w, "Rate of execution = %8.5f us/(point*iteration) over %d iterations\n", rate, rpt.Iterations)
	}
	fmt.Fprintf(w, "%s\n", utils.GetMemUsage())
}
