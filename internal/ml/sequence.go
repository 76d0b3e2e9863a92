package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/debnathsouvik2005/IoT-Precision-Irrigation-system-Team-CTRL-ALT-DEL/internal/models"
)

// SequenceConfig holds sequence model hyperparameters
type SequenceConfig struct {
	Window          int     `yaml:"window" json:"window"`
	Hidden          int     `yaml:"hidden" json:"hidden"`
	Dense           int     `yaml:"dense" json:"dense"`
	Dropout         float64 `yaml:"dropout" json:"dropout"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	BatchSize       int     `yaml:"batch_size" json:"batch_size"`
	Epochs          int     `yaml:"epochs" json:"epochs"`
	Patience        int     `yaml:"patience" json:"patience"`
	ValidationSplit float64 `yaml:"validation_split" json:"validation_split"`
	Seed            int64   `yaml:"seed" json:"seed"`
}

// DefaultSequenceConfig returns the default LSTM settings
func DefaultSequenceConfig() SequenceConfig {
	return SequenceConfig{
		Window:          12,
		Hidden:          50,
		Dense:           25,
		Dropout:         0.2,
		LearningRate:    1e-3,
		BatchSize:       32,
		Epochs:          50,
		Patience:        10,
		ValidationSplit: 0.2,
		Seed:            42,
	}
}

// Window is one training sample: Window consecutive feature vectors and the
// label of the row right after them.
type Window struct {
	Inputs [][]float64
	Target float64
	Index  int // row index of the target
}

// BuildWindows produces max(0, len(X)-n) windows in row order
func BuildWindows(X [][]float64, y []float64, n int) []Window {
	if n <= 0 || len(X) <= n {
		return nil
	}
	windows := make([]Window, 0, len(X)-n)
	for i := n; i < len(X); i++ {
		windows = append(windows, Window{
			Inputs: X[i-n : i],
			Target: y[i],
			Index:  i,
		})
	}
	return windows
}

// EpochLoss is one point of the training curve, in standardized target units
type EpochLoss struct {
	Epoch     int     `json:"epoch" yaml:"epoch"`
	TrainLoss float64 `json:"train_loss" yaml:"train_loss"`
	ValLoss   float64 `json:"val_loss" yaml:"val_loss"`
}

// SequenceReport summarizes a sequence training run
type SequenceReport struct {
	Windows      int         `json:"windows" yaml:"windows"`
	TrainWindows int         `json:"train_windows" yaml:"train_windows"`
	ValWindows   int         `json:"val_windows" yaml:"val_windows"`
	Epochs       int         `json:"epochs" yaml:"epochs"`
	BestEpoch    int         `json:"best_epoch" yaml:"best_epoch"`
	BestValMSE   float64     `json:"best_val_mse" yaml:"best_val_mse"` // minutes squared
	Curve        []EpochLoss `json:"curve" yaml:"-"`
}

// SequenceModel is a two-layer LSTM regressor over windows of scaled
// feature vectors:
// LSTM(H, sequences) -> Dropout -> LSTM(H) -> Dropout -> Dense(D) -> Dense(1).
type SequenceModel struct {
	cfg       SequenceConfig
	inputSize int

	l1, l2 *lstmLayer
	d1W    *mat.Dense    // D x H
	d1B    *mat.VecDense // D
	d2W    *mat.Dense    // 1 x D
	d2B    *mat.VecDense // 1

	targetMean float64
	targetStd  float64
	trained    bool

	logger *zap.Logger
}

// NewSequenceModel creates an untrained model for inputSize features
func NewSequenceModel(cfg SequenceConfig, inputSize int, logger *zap.Logger) *SequenceModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	m := &SequenceModel{
		cfg:       cfg,
		inputSize: inputSize,
		targetStd: 1,
		logger:    logger.Named("sequence"),
	}
	m.init(rand.New(rand.NewSource(cfg.Seed)))
	return m
}

func (m *SequenceModel) init(rng *rand.Rand) {
	H, D := m.cfg.Hidden, m.cfg.Dense
	m.l1 = newLSTMLayer(m.inputSize, H, rng)
	m.l2 = newLSTMLayer(H, H, rng)
	m.d1W = mat.NewDense(D, H, glorotUniform(rng, H, D, D*H))
	m.d1B = mat.NewVecDense(D, nil)
	m.d2W = mat.NewDense(1, D, glorotUniform(rng, D, 1, D))
	m.d2B = mat.NewVecDense(1, nil)
}

// Window returns the number of past vectors a prediction needs
func (m *SequenceModel) Window() int {
	return m.cfg.Window
}

// Trained reports whether the model can predict
func (m *SequenceModel) Trained() bool {
	return m != nil && m.trained
}

// Train fits the model on X (scaled, oldest first) and y. The windows are
// split chronologically; early stopping watches the validation loss and the
// best weights are restored at the end.
func (m *SequenceModel) Train(ctx context.Context, X [][]float64, y []float64) (*SequenceReport, error) {
	n := m.cfg.Window
	if len(X) != len(y) {
		return nil, fmt.Errorf("X and y must have same number of samples")
	}
	if n <= 0 {
		return nil, fmt.Errorf("sequence window must be positive, got %d", n)
	}
	if len(X) < n+1 {
		return nil, &models.InsufficientDataError{Model: "sequence", Have: len(X), Need: n + 1}
	}
	for i, row := range X {
		if len(row) != m.inputSize {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), m.inputSize)
		}
	}

	windows := BuildWindows(X, y, n)
	trainIdx, valIdx := ChronologicalSplit(len(windows), m.cfg.ValidationSplit)
	if len(trainIdx) == 0 {
		trainIdx, valIdx = valIdx, nil
	}
	if len(valIdx) == 0 {
		valIdx = trainIdx
	}

	targets := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		targets[i] = windows[idx].Target
	}
	mean, std := stat.PopMeanStdDev(targets, nil)
	if std < minScale {
		std = 1
	}
	m.targetMean, m.targetStd = mean, std

	rng := rand.New(rand.NewSource(m.cfg.Seed))
	params := m.params()
	opt := newAdam(m.cfg.LearningRate, params)
	grads := m.newGrads()
	gradSlices := grads.slices()

	report := &SequenceReport{
		Windows:      len(windows),
		TrainWindows: len(trainIdx),
		ValWindows:   len(valIdx),
	}
	best := math.Inf(1)
	var bestParams [][]float64
	wait := 0

	order := append([]int(nil), trainIdx...)
	for epoch := 1; epoch <= m.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sequence training cancelled: %w", err)
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		trainLoss := 0.0
		for start := 0; start < len(order); start += m.cfg.BatchSize {
			end := start + m.cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}
			grads.zero()
			batch := float64(end - start)
			for _, idx := range order[start:end] {
				w := windows[idx]
				pass := m.forward(w.Inputs, rng)
				diff := pass.out - m.standardize(w.Target)
				trainLoss += diff * diff
				m.backward(pass, 2*diff/batch, grads)
			}
			opt.step(params, gradSlices)
		}
		trainLoss /= float64(len(order))

		valLoss := m.loss(windows, valIdx)
		report.Curve = append(report.Curve, EpochLoss{Epoch: epoch, TrainLoss: trainLoss, ValLoss: valLoss})
		report.Epochs = epoch

		if valLoss < best {
			best = valLoss
			bestParams = cloneParams(params)
			report.BestEpoch = epoch
			wait = 0
		} else {
			wait++
			if m.cfg.Patience > 0 && wait >= m.cfg.Patience {
				m.logger.Debug("Early stopping", zap.Int("epoch", epoch), zap.Int("best_epoch", report.BestEpoch))
				break
			}
		}
	}

	if bestParams != nil {
		restoreParams(params, bestParams)
	}
	m.trained = true
	report.BestValMSE = best * m.targetStd * m.targetStd

	m.logger.Info("LSTM trained",
		zap.Int("windows", report.Windows),
		zap.Int("epochs", report.Epochs),
		zap.Int("best_epoch", report.BestEpoch),
		zap.Float64("best_val_mse", report.BestValMSE),
	)
	return report, nil
}

// Predict returns the duration estimate for one window of scaled vectors,
// oldest first.
func (m *SequenceModel) Predict(window [][]float64) (float64, error) {
	if !m.Trained() {
		return 0, models.ErrNotTrained
	}
	if len(window) != m.cfg.Window {
		return 0, fmt.Errorf("sequence model expects a window of %d vectors, got %d", m.cfg.Window, len(window))
	}
	for i, row := range window {
		if len(row) != m.inputSize {
			return 0, fmt.Errorf("window row %d has %d features, expected %d", i, len(row), m.inputSize)
		}
	}
	pass := m.forward(window, nil)
	return m.targetMean + m.targetStd*pass.out, nil
}

func (m *SequenceModel) standardize(y float64) float64 {
	return (y - m.targetMean) / m.targetStd
}

// loss is the mean squared error in standardized units without dropout
func (m *SequenceModel) loss(windows []Window, indices []int) float64 {
	sum := 0.0
	for _, idx := range indices {
		pass := m.forward(windows[idx].Inputs, nil)
		d := pass.out - m.standardize(windows[idx].Target)
		sum += d * d
	}
	return sum / float64(len(indices))
}

// seqPass caches one forward pass
type seqPass struct {
	s1, s2 []lstmStep
	m1     [][]float64 // dropout masks after layer 1, per step
	m2     []float64   // dropout mask after layer 2
	hDrop  *mat.VecDense
	a      *mat.VecDense
	out    float64
}

// forward runs the network on one window. A nil rng disables dropout.
func (m *SequenceModel) forward(window [][]float64, rng *rand.Rand) *seqPass {
	H := m.cfg.Hidden
	p := &seqPass{}

	xs := make([]*mat.VecDense, len(window))
	for t, row := range window {
		xs[t] = mat.NewVecDense(len(row), append([]float64(nil), row...))
	}
	p.s1 = m.l1.forward(xs)

	in2 := make([]*mat.VecDense, len(p.s1))
	p.m1 = make([][]float64, len(p.s1))
	for t, s := range p.s1 {
		p.m1[t] = m.dropoutMask(H, rng)
		v := mat.NewVecDense(H, nil)
		for j := 0; j < H; j++ {
			v.SetVec(j, s.h.AtVec(j)*p.m1[t][j])
		}
		in2[t] = v
	}
	p.s2 = m.l2.forward(in2)

	last := p.s2[len(p.s2)-1].h
	p.m2 = m.dropoutMask(H, rng)
	p.hDrop = mat.NewVecDense(H, nil)
	for j := 0; j < H; j++ {
		p.hDrop.SetVec(j, last.AtVec(j)*p.m2[j])
	}

	p.a = mat.NewVecDense(m.cfg.Dense, nil)
	p.a.MulVec(m.d1W, p.hDrop)
	p.a.AddVec(p.a, m.d1B)

	p.out = mat.Dot(m.d2W.RowView(0), p.a) + m.d2B.AtVec(0)
	return p
}

// dropoutMask returns inverted-dropout scale factors, all ones when rng is nil
func (m *SequenceModel) dropoutMask(n int, rng *rand.Rand) []float64 {
	mask := make([]float64, n)
	keep := 1 - m.cfg.Dropout
	for j := range mask {
		switch {
		case rng == nil || m.cfg.Dropout <= 0:
			mask[j] = 1
		case rng.Float64() < keep:
			mask[j] = 1 / keep
		}
	}
	return mask
}

// seqGrads mirrors the model parameters
type seqGrads struct {
	l1, l2 *lstmGrad
	d1W    *mat.Dense
	d1B    *mat.VecDense
	d2W    *mat.Dense
	d2B    *mat.VecDense
}

func (m *SequenceModel) newGrads() *seqGrads {
	return &seqGrads{
		l1:  newLSTMGrad(m.l1),
		l2:  newLSTMGrad(m.l2),
		d1W: mat.NewDense(m.cfg.Dense, m.cfg.Hidden, nil),
		d1B: mat.NewVecDense(m.cfg.Dense, nil),
		d2W: mat.NewDense(1, m.cfg.Dense, nil),
		d2B: mat.NewVecDense(1, nil),
	}
}

func (g *seqGrads) slices() [][]float64 {
	return [][]float64{
		g.l1.W.RawMatrix().Data, g.l1.U.RawMatrix().Data, g.l1.B.RawVector().Data,
		g.l2.W.RawMatrix().Data, g.l2.U.RawMatrix().Data, g.l2.B.RawVector().Data,
		g.d1W.RawMatrix().Data, g.d1B.RawVector().Data,
		g.d2W.RawMatrix().Data, g.d2B.RawVector().Data,
	}
}

func (g *seqGrads) zero() {
	for _, s := range g.slices() {
		for i := range s {
			s[i] = 0
		}
	}
}

// params returns the live parameter storage in the same order as seqGrads.slices
func (m *SequenceModel) params() [][]float64 {
	return [][]float64{
		m.l1.W.RawMatrix().Data, m.l1.U.RawMatrix().Data, m.l1.B.RawVector().Data,
		m.l2.W.RawMatrix().Data, m.l2.U.RawMatrix().Data, m.l2.B.RawVector().Data,
		m.d1W.RawMatrix().Data, m.d1B.RawVector().Data,
		m.d2W.RawMatrix().Data, m.d2B.RawVector().Data,
	}
}

func (m *SequenceModel) backward(p *seqPass, dout float64, g *seqGrads) {
	H := m.cfg.Hidden

	one := mat.NewVecDense(1, []float64{1})
	g.d2W.RankOne(g.d2W, dout, one, p.a)
	g.d2B.SetVec(0, g.d2B.AtVec(0)+dout)

	da := mat.NewVecDense(m.cfg.Dense, nil)
	da.ScaleVec(dout, m.d2W.RowView(0))
	g.d1W.RankOne(g.d1W, 1, da, p.hDrop)
	g.d1B.AddVec(g.d1B, da)

	dh := mat.NewVecDense(H, nil)
	dh.MulVec(m.d1W.T(), da)
	for j := 0; j < H; j++ {
		dh.SetVec(j, dh.AtVec(j)*p.m2[j])
	}

	dH2 := make([]*mat.VecDense, len(p.s2))
	dH2[len(dH2)-1] = dh
	dIn2 := m.l2.backward(p.s2, dH2, g.l2)

	for t, d := range dIn2 {
		for j := 0; j < H; j++ {
			d.SetVec(j, d.AtVec(j)*p.m1[t][j])
		}
	}
	m.l1.backward(p.s1, dIn2, g.l1)
}

func cloneParams(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for k, p := range params {
		out[k] = append([]float64(nil), p...)
	}
	return out
}

func restoreParams(dst, src [][]float64) {
	for k := range dst {
		copy(dst[k], src[k])
	}
}

// sequenceJSON is the persisted form of a trained SequenceModel
type sequenceJSON struct {
	Config     SequenceConfig `json:"config"`
	InputSize  int            `json:"input_size"`
	TargetMean float64        `json:"target_mean"`
	TargetStd  float64        `json:"target_std"`
	Params     [][]float64    `json:"params"`
}

// MarshalJSON encodes the trained weights
func (m *SequenceModel) MarshalJSON() ([]byte, error) {
	if !m.Trained() {
		return nil, models.ErrNotTrained
	}
	return json.Marshal(sequenceJSON{
		Config:     m.cfg,
		InputSize:  m.inputSize,
		TargetMean: m.targetMean,
		TargetStd:  m.targetStd,
		Params:     m.params(),
	})
}

// UnmarshalJSON rebuilds the network and checks every weight block's size
func (m *SequenceModel) UnmarshalJSON(data []byte) error {
	var s sequenceJSON
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s.InputSize <= 0 || s.Config.Hidden <= 0 || s.Config.Dense <= 0 || s.Config.Window <= 0 {
		return fmt.Errorf("invalid sequence model shape")
	}
	if s.TargetStd == 0 {
		return fmt.Errorf("invalid target scale")
	}

	m.cfg = s.Config
	m.inputSize = s.InputSize
	m.init(rand.New(rand.NewSource(0)))

	params := m.params()
	if len(s.Params) != len(params) {
		return fmt.Errorf("expected %d weight blocks, got %d", len(params), len(s.Params))
	}
	for k := range params {
		if len(s.Params[k]) != len(params[k]) {
			return fmt.Errorf("weight block %d: expected %d values, got %d", k, len(params[k]), len(s.Params[k]))
		}
	}
	restoreParams(params, s.Params)

	m.targetMean = s.TargetMean
	m.targetStd = s.TargetStd
	m.trained = true
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return nil
}
