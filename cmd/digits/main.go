// Command digits trains a convolutional digit classifier on .npy data,
// evaluates it on a held-out split and prints predictions for the test set.
//
// Usage:
//
//	digits [-config run.yaml] [-data_dir data] [-train_steps 100] ...
//	digits version
//
// With no flags it reads data/train_X.npy, data/train_y.npy and
// data/test_X.npy and runs 100 training steps on the CPU.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/born-ml/born/tensor"
	"github.com/google/uuid"

	"github.com/hfma6579/Data-Science-Project-1/internal/config"
	"github.com/hfma6579/Data-Science-Project-1/internal/dataset"
	"github.com/hfma6579/Data-Science-Project-1/internal/estimator"
	"github.com/hfma6579/Data-Science-Project-1/internal/logging"
	"github.com/hfma6579/Data-Science-Project-1/internal/model"
	"github.com/hfma6579/Data-Science-Project-1/internal/report"
)

const version = "v0.1.0-dev"

// stepCounterEvery is how often the loss and training speed are logged.
const stepCounterEvery = 100

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("digits %s\n", version)
		return
	}

	configPath, o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	cfg.ApplyOverrides(o)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logCfg := cfg.Logging()
	logCfg.Prefix = fmt.Sprintf("[%s] ", uuid.NewString()[:8])
	logger := logging.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runOnDevice(ctx, cfg, logger, os.Stdout); err != nil {
		stop()
		log.Fatalf("Run failed: %v", err)
	}
}

// parseFlags reads the command line into a config path and overrides.
// Flags left off the command line do not override anything.
func parseFlags(args []string) (string, config.Overrides, error) {
	fs := flag.NewFlagSet("digits", flag.ContinueOnError)
	configPath := fs.String("config", "", "Optional YAML config file")
	var o config.Overrides
	var seed int64
	fs.StringVar(&o.DataDir, "data_dir", "", "Directory holding train_X.npy, train_y.npy and test_X.npy")
	fs.IntVar(&o.TrainSteps, "train_steps", 0, "Number of training steps")
	fs.IntVar(&o.BatchSize, "batch_size", 0, "Training batch size")
	fs.IntVar(&o.EvalBatchSize, "eval_batch_size", 0, "Batch size for evaluation and prediction")
	fs.Float64Var(&o.LearningRate, "learning_rate", 0, "Gradient descent learning rate")
	fs.Float64Var(&o.EvalFraction, "eval_fraction", 0, "Fraction of the training data held out for evaluation")
	fs.Int64Var(&seed, "seed", 0, "Seed for the split and the batch shuffling")
	fs.IntVar(&o.LogEvery, "log_every", 0, "Log predicted probabilities every N steps")
	fs.StringVar(&o.LogLevel, "log_level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&o.Device, "device", "", "Compute device: cpu or webgpu")
	fs.StringVar(&o.InitCheckpoint, "init_checkpoint", "", "Load weights from this .born file before training")
	fs.StringVar(&o.Checkpoint, "checkpoint", "", "Save the trained weights to this .born file")
	if err := fs.Parse(args); err != nil {
		return "", config.Overrides{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			o.Seed = &seed
		}
	})
	return *configPath, o, nil
}

// run executes the whole pipeline on backend and writes the report to out.
func run[B tensor.Backend](ctx context.Context, backend B, cfg *config.Config, logger *logging.Logger, out io.Writer) error {
	logger.Infof("loading data from %s", cfg.DataDir)
	all, test, err := dataset.LoadAll(ctx, cfg.DataDir)
	if err != nil {
		return err
	}
	train, eval, err := dataset.Split(all, cfg.EvalFraction, cfg.Seed)
	if err != nil {
		return err
	}
	logger.Infof("train: %d samples, eval: %d samples, test: %d samples",
		train.NumSamples(), eval.NumSamples(), test.NumSamples())

	clf := model.NewClassifier(backend, model.Config{LearningRate: float32(cfg.LearningRate)})
	logger.Infof("model has %d trainable parameters on %s", clf.Net().NumParameters(), backend.Name())
	logger.Debugf("%s", clf.Net())
	if cfg.InitCheckpoint != "" {
		meta, err := clf.Load(cfg.InitCheckpoint)
		if err != nil {
			return err
		}
		logger.Infof("restored weights from %s (global step %s)", cfg.InitCheckpoint, meta["global_step"])
	}

	est := estimator.New(clf, logger)

	trainIt, err := dataset.Shuffled(train, cfg.BatchSize, cfg.Seed)
	if err != nil {
		return err
	}
	err = est.Train(ctx, trainIt, cfg.TrainSteps,
		estimator.NewLoggingHook(cfg.LogEvery, logger),
		estimator.NewStepCounterHook(stepCounterEvery, logger),
	)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if cfg.Checkpoint != "" {
		meta := map[string]string{"global_step": strconv.Itoa(est.GlobalStep())}
		if err := clf.Save(cfg.Checkpoint, meta); err != nil {
			return err
		}
		logger.Infof("saved weights to %s", cfg.Checkpoint)
	}

	evalIt, err := dataset.Sequential(eval, cfg.EvalBatchSize)
	if err != nil {
		return err
	}
	metrics, err := est.Evaluate(ctx, evalIt)
	if err != nil {
		return fmt.Errorf("evaluation: %w", err)
	}

	testIt, err := dataset.Sequential(test, cfg.EvalBatchSize)
	if err != nil {
		return err
	}
	preds, err := est.Predict(ctx, testIt)
	if err != nil {
		return fmt.Errorf("prediction: %w", err)
	}

	return report.Write(out, metrics, preds)
}
