package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/solarcast/core/factory"
	"github.com/kilianp07/solarcast/core/forecast"
	"github.com/kilianp07/solarcast/core/logger"
	"github.com/kilianp07/solarcast/core/model"
	"github.com/kilianp07/solarcast/internal/atomicfile"
)

// DefaultSplitDate separates training from evaluation rows.
const DefaultSplitDate = "2020-06-15"

// ErrUnknownSelection is returned when the configured model was not trained.
var ErrUnknownSelection = errors.New("selected model not trained")

// Config drives a training run.
type Config struct {
	GenerationPath string                 `json:"generation_path"`
	WeatherPath    string                 `json:"weather_path"`
	SplitDate      string                 `json:"split_date"`
	Models         []factory.ModuleConfig `json:"models"`
	// Select names the model to persist; empty picks the lowest MAE.
	Select       string `json:"select"`
	ArtifactPath string `json:"artifact_path"`
	ReportPath   string `json:"report_path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GenerationPath == "" {
		c.GenerationPath = "data/Plant_1_Generation_Data.csv"
	}
	if c.WeatherPath == "" {
		c.WeatherPath = "data/Plant_1_Weather_Sensor_Data.csv"
	}
	if c.SplitDate == "" {
		c.SplitDate = DefaultSplitDate
	}
	if len(c.Models) == 0 {
		c.Models = forecast.DefaultSpecs()
	}
	if c.ArtifactPath == "" {
		c.ArtifactPath = "models/solar_model.json"
	}
	if c.ReportPath == "" {
		c.ReportPath = "models/training_report.json"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if _, err := c.splitAt(); err != nil {
		return fmt.Errorf("training split_date: %w", err)
	}
	if c.ArtifactPath == "" {
		return fmt.Errorf("training artifact_path is required")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Type == "" {
			return fmt.Errorf("training model without type")
		}
		if seen[m.Type] {
			return fmt.Errorf("training model %s listed twice", m.Type)
		}
		seen[m.Type] = true
	}
	if c.Select != "" && !seen[c.Select] {
		return fmt.Errorf("%w: %s", ErrUnknownSelection, c.Select)
	}
	return nil
}

func (c Config) splitAt() (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, c.SplitDate, time.Local)
}

// Result is the evaluation of one fitted regressor on the test split.
type Result struct {
	Name     string         `json:"name"`
	MAE      float64        `json:"mae"`
	R2       float64        `json:"r2"`
	Params   map[string]any `json:"params,omitempty"`
	Duration time.Duration  `json:"fit_duration_ns"`
	Error    string         `json:"error,omitempty"`

	regressor forecast.Regressor
}

// Report summarises a training run.
type Report struct {
	GeneratedAt  time.Time `json:"generated_at"`
	SplitDate    string    `json:"split_date"`
	TrainRows    int       `json:"train_rows"`
	TestRows     int       `json:"test_rows"`
	FeatureOrder []string  `json:"feature_order"`
	Results      []Result  `json:"results"`
	Selected     string    `json:"selected"`
	ArtifactPath string    `json:"artifact_path"`
}

// Evaluate returns the mean absolute error and the coefficient of
// determination of predictions against actual.
func Evaluate(actual, predicted []float64) (mae, r2 float64) {
	abs := make([]float64, len(actual))
	for i := range actual {
		abs[i] = math.Abs(actual[i] - predicted[i])
	}
	mae = stat.Mean(abs, nil)
	r2 = stat.RSquaredFrom(predicted, actual, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// constant target
		r2 = 0
	}
	return mae, r2
}

// Fit trains every configured model on train and evaluates it on test. A
// model failing to build or fit is reported with its error and skipped for
// selection.
func Fit(ctx context.Context, train, test []model.Reading, models []factory.ModuleConfig, log logger.Logger) ([]Result, error) {
	Xtr, ytr := Matrix(train)
	Xte, yte := Matrix(test)
	results := make([]Result, 0, len(models))
	for _, mc := range models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := Result{Name: mc.Type, Params: mc.Conf}
		reg, err := forecast.New(mc.Type, mc.Conf)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			log.Warnf("training %s: %v", mc.Type, err)
			continue
		}
		start := time.Now()
		if err := reg.Fit(Xtr, ytr); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			log.Warnf("training %s: %v", mc.Type, err)
			continue
		}
		res.Duration = time.Since(start)
		pred := make([]float64, len(Xte))
		for i, row := range Xte {
			pred[i] = reg.PredictRow(row)
		}
		res.MAE, res.R2 = Evaluate(yte, pred)
		res.regressor = reg
		log.Infof("%s: MAE=%.4f R2=%.4f (%s)", mc.Type, res.MAE, res.R2, res.Duration.Round(time.Millisecond))
		results = append(results, res)
	}
	return results, nil
}

// Select returns the index of the named result, or of the lowest MAE when
// name is empty.
func Select(results []Result, name string) (int, error) {
	best := -1
	for i, r := range results {
		if r.regressor == nil {
			continue
		}
		if name != "" {
			if r.Name == name {
				return i, nil
			}
			continue
		}
		if best < 0 || r.MAE < results[best].MAE {
			best = i
		}
	}
	if best < 0 {
		if name != "" {
			return -1, fmt.Errorf("%w: %s", ErrUnknownSelection, name)
		}
		return -1, fmt.Errorf("no model trained successfully")
	}
	return best, nil
}

// Trainer runs the training pipeline.
type Trainer struct {
	cfg Config
	log logger.Logger
	now func() time.Time
}

// NewTrainer returns a Trainer for cfg.
func NewTrainer(cfg Config, log logger.Logger) *Trainer {
	return &Trainer{cfg: cfg, log: log, now: time.Now}
}

// Run loads both exports, trains every configured regressor, saves the
// selected artifact and writes the report.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	gf, err := os.Open(t.cfg.GenerationPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = gf.Close() }()
	gen, err := LoadGeneration(gf)
	if err != nil {
		return nil, err
	}
	wf, err := os.Open(t.cfg.WeatherPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wf.Close() }()
	weather, err := LoadWeather(wf)
	if err != nil {
		return nil, err
	}
	return t.RunRows(ctx, Merge(gen, weather))
}

// RunRows is Run on an already merged dataset.
func (t *Trainer) RunRows(ctx context.Context, rows []model.Reading) (*Report, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	at, err := t.cfg.splitAt()
	if err != nil {
		return nil, err
	}
	train, test, err := Split(rows, at)
	if err != nil {
		return nil, err
	}
	t.log.Infof("training on %d rows, evaluating on %d", len(train), len(test))
	results, err := Fit(ctx, train, test, t.cfg.Models, t.log)
	if err != nil {
		return nil, err
	}
	idx, err := Select(results, t.cfg.Select)
	if err != nil {
		return nil, err
	}
	chosen := results[idx]
	now := t.now()
	art, err := forecast.NewArtifact(chosen.Name, chosen.regressor, chosen.Params,
		map[string]float64{"mae": chosen.MAE, "r2": chosen.R2}, now)
	if err != nil {
		return nil, err
	}
	if err := art.Save(t.cfg.ArtifactPath); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	t.log.Infof("saved %s model to %s", chosen.Name, t.cfg.ArtifactPath)

	rep := &Report{
		GeneratedAt:  now.UTC(),
		SplitDate:    t.cfg.SplitDate,
		TrainRows:    len(train),
		TestRows:     len(test),
		FeatureOrder: model.FeatureNames(),
		Results:      results,
		Selected:     chosen.Name,
		ArtifactPath: t.cfg.ArtifactPath,
	}
	if t.cfg.ReportPath != "" {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return nil, err
		}
		if err := atomicfile.WriteFile(t.cfg.ReportPath, b, 0o644); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}
	return rep, nil
}
