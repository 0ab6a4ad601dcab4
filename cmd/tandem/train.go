package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/tandem-ml/tandem/internal/amp"
	"github.com/tandem-ml/tandem/internal/autodiff"
	"github.com/tandem-ml/tandem/internal/backend/cpu"
	"github.com/tandem-ml/tandem/internal/config"
	"github.com/tandem-ml/tandem/internal/dist"
	"github.com/tandem-ml/tandem/internal/memtrace"
	"github.com/tandem-ml/tandem/internal/nn"
	"github.com/tandem-ml/tandem/internal/optim"
	"github.com/tandem-ml/tandem/internal/serialization"
	"github.com/tandem-ml/tandem/internal/tensor"
	"github.com/tandem-ml/tandem/internal/version"
)

// Demo model dimensions. The regression target is linear, so two stacked
// Linear layers are enough to show the scaler and master copies working.
const (
	trainFeatures = 8
	trainHidden   = 16
)

func trainCmd() *cli.Command {
	var (
		steps        int64
		batchSize    int64
		learningRate float64
		clipGradNorm float64
		dtypeName    string
		seed         int64
		verbose      bool

		initScale      float64
		growthInterval int64
		hysteresis     int64

		coordinator   string
		session       string
		worldSize     int64
		rank          int64
		dataParallel  int64
		modelParallel int64

		checkpointPath string
		resumePath     string
	)

	return &cli.Command{
		Name:  "train",
		Usage: "Run a mixed precision training demo (synthetic regression)",
		Flags: append(loggingFlags(),
			&cli.Int64Flag{
				Name:        "steps",
				Usage:       "number of optimizer steps",
				Value:       100,
				Destination: &steps,
			},
			&cli.Int64Flag{
				Name:        "batch-size",
				Usage:       "rows per synthetic batch",
				Value:       32,
				Destination: &batchSize,
			},
			&cli.Float64Flag{
				Name:        "learning-rate",
				Aliases:     []string{"lr"},
				Usage:       "SGD learning rate",
				Value:       0.05,
				Destination: &learningRate,
			},
			&cli.Float64Flag{
				Name:        "clip-grad-norm",
				Usage:       "max global gradient norm (0 disables clipping)",
				Value:       1.0,
				Destination: &clipGradNorm,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "parameter dtype (float16, bfloat16, float32)",
				Value:       "float16",
				Destination: &dtypeName,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "RNG seed for the synthetic data stream",
				Value:       42,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "log scale adjustments and skipped steps",
				Destination: &verbose,
			},
			&cli.Float64Flag{
				Name:        "init-scale",
				Usage:       "initial loss scale",
				Value:       65536,
				Destination: &initScale,
			},
			&cli.Int64Flag{
				Name:        "growth-interval",
				Usage:       "clean steps between scale increases",
				Value:       1000,
				Destination: &growthInterval,
			},
			&cli.Int64Flag{
				Name:        "hysteresis",
				Usage:       "consecutive overflows before the scale decreases",
				Value:       2,
				Destination: &hysteresis,
			},
			&cli.StringFlag{
				Name:        "coordinator",
				Usage:       "coordinator base URL (e.g. http://127.0.0.1:7700)",
				Destination: &coordinator,
			},
			&cli.StringFlag{
				Name:        "session",
				Usage:       "rendezvous session name",
				Value:       "default",
				Destination: &session,
			},
			&cli.Int64Flag{
				Name:        "world-size",
				Usage:       "total number of processes",
				Value:       1,
				Destination: &worldSize,
			},
			&cli.Int64Flag{
				Name:        "rank",
				Usage:       "this process's rank",
				Destination: &rank,
			},
			&cli.Int64Flag{
				Name:        "data-parallel",
				Usage:       "data parallel degree (0 = world-size / model-parallel)",
				Destination: &dataParallel,
			},
			&cli.Int64Flag{
				Name:        "model-parallel",
				Usage:       "model parallel degree",
				Value:       1,
				Destination: &modelParallel,
			},
			&cli.StringFlag{
				Name:        "checkpoint",
				Usage:       "write a checkpoint here when training finishes",
				Destination: &checkpointPath,
			},
			&cli.StringFlag{
				Name:        "resume",
				Usage:       "restore optimizer and scaler state from this checkpoint",
				Destination: &resumePath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := newLogger(cmd, cfg)

			dt, err := parseDType(dtypeName)
			if err != nil {
				return err
			}

			numSteps := effectiveInt(cmd, "steps", steps, cfg.Steps)
			lr := effectiveFloat(cmd, "learning-rate", learningRate, cfg.LearningRate)
			clip := effectiveFloat(cmd, "clip-grad-norm", clipGradNorm, cfg.ClipGradNorm)
			dataSeed := effectiveInt(cmd, "seed", seed, cfg.Seed)
			chatty := effectiveBool(cmd, "verbose", verbose, cfg.Verbose)

			world := effectiveInt(cmd, "world-size", worldSize, cfg.WorldSize)
			rankV := effectiveInt(cmd, "rank", rank, cfg.Rank)
			mp := effectiveInt(cmd, "model-parallel", modelParallel, cfg.ModelParallel)
			dp := effectiveInt(cmd, "data-parallel", dataParallel, cfg.DataParallel)
			coordURL := effectiveString(cmd, "coordinator", coordinator, cfg.Coordinator)
			sessionName := effectiveString(cmd, "session", session, cfg.Session)

			if world < 1 {
				return fmt.Errorf("world-size must be at least 1, got %d", world)
			}
			if rankV < 0 || rankV >= world {
				return fmt.Errorf("rank %d outside world of size %d", rankV, world)
			}
			if mp < 1 {
				return fmt.Errorf("model-parallel must be at least 1, got %d", mp)
			}
			if dp == 0 {
				if world%mp != 0 {
					return fmt.Errorf("world-size %d not divisible by model-parallel %d", world, mp)
				}
				dp = world / mp
			}
			if dp*mp != world {
				return fmt.Errorf("data-parallel %d x model-parallel %d does not cover world-size %d", dp, mp, world)
			}
			if world > 1 && coordURL == "" {
				return fmt.Errorf("world-size %d requires --coordinator", world)
			}

			provider, err := joinTopology(ctx, coordURL, sessionName, rankV, dp, mp)
			if err != nil {
				return err
			}

			scfg := cfg.ScalerConfig(amp.DefaultScalerConfig())
			if cmd.IsSet("init-scale") {
				scfg.InitialScale = initScale
			}
			if cmd.IsSet("growth-interval") {
				scfg.GrowthInterval = int(growthInterval)
			}
			if cmd.IsSet("hysteresis") {
				scfg.Hysteresis = int(hysteresis)
			}
			if cmd.IsSet("verbose") {
				scfg.Verbose = verbose
			}
			scfg.Logger = log
			scaler, err := amp.NewDynamicGradScaler(scfg)
			if err != nil {
				return err
			}

			backend := autodiff.New(cpu.New())
			model := nn.NewSequential(
				nn.NewLinear(trainFeatures, trainHidden, dt, backend),
				nn.NewLinear(trainHidden, 1, dt, backend),
			)
			params := model.Parameters()

			backward := func(loss *tensor.RawTensor, scale float64) error {
				scaled := backend.ScaleLoss(loss, scale)
				ones, err := tensor.NewRaw(scaled.Shape(), scaled.DType(), backend.Device())
				if err != nil {
					return err
				}
				backend.Fill(ones, 1)
				grads := backend.Tape().Backward(ones, backend)
				nn.AssignGrads(params, grads, backend)
				return nil
			}

			tracer := memtrace.New()
			base := optim.NewSGD([]*optim.Group{optim.NewGroup(params, lr)}, optim.SGDConfig{Momentum: 0.9})
			opt, err := amp.NewMixedPrecisionOptimizer(base, scaler, backend, amp.Config{
				ClipGradNorm: clip,
				Groups:       provider,
				Backward:     backward,
				Tracer:       tracer,
				Logger:       log,
				Verbose:      chatty,
			})
			if err != nil {
				return err
			}

			if resumePath != "" {
				dict, err := serialization.LoadCheckpoint(resumePath, backend)
				if err != nil {
					return err
				}
				if err := opt.LoadStateDict(dict); err != nil {
					return err
				}
				log.Info("resumed", "path", resumePath, "scale", opt.LossScale())
			}

			log.Info("training",
				"dtype", dt.String(),
				"steps", numSteps,
				"batch_size", batchSize,
				"lr", lr,
				"world", world,
				"rank", rankV,
			)

			rng := rand.New(rand.NewSource(dataSeed + rankV))
			tape := backend.Tape()
			for step := int64(0); step < numSteps; step++ {
				xs, ys := syntheticBatch(rng, int(batchSize), dt)

				tape.Clear()
				tape.StartRecording()
				pred := model.Forward(xs)
				diff := backend.Sub(pred, ys)
				loss := backend.Mean(backend.Mul(diff, diff))
				if err := opt.Backward(loss); err != nil {
					return err
				}
				tape.StopRecording()

				res, err := opt.Step(ctx)
				if err != nil {
					return err
				}
				opt.ZeroGrad()

				switch {
				case !res.Stepped:
					log.Warn("step skipped", "step", step, "scale", opt.LossScale())
				case step%10 == 0 || step == numSteps-1:
					args := []any{"step", step, "loss", loss.Float32Values()[0], "scale", opt.LossScale()}
					if res.HasGradNorm {
						args = append(args, "grad_norm", res.GradNorm)
					}
					log.Info("step", args...)
				}
			}

			log.Info("done", "master_bytes_peak", tracer.Peak())

			if checkpointPath != "" {
				dict, err := opt.StateDict()
				if err != nil {
					return err
				}
				meta := map[string]string{
					"model":   "synthetic-regression",
					"dtype":   dt.String(),
					"steps":   strconv.FormatInt(numSteps, 10),
					"version": version.String(),
				}
				if err := serialization.SaveCheckpoint(checkpointPath, dict, meta); err != nil {
					return err
				}
				log.Info("checkpoint written", "path", checkpointPath)
			}
			return nil
		},
	}
}

// joinTopology resolves the process groups for the 2D rank grid. Ranks are
// laid out model-parallel fastest: rank = d*mp + m. Groups of size 1 stay
// nil, which the optimizer treats as local no-op reductions.
func joinTopology(ctx context.Context, coordURL, session string, rank, dp, mp int64) (dist.Provider, error) {
	if dp*mp == 1 {
		return dist.SingleProcess{}, nil
	}
	d, m := rank/mp, rank%mp

	var topo dist.Topology
	if dp > 1 {
		name := fmt.Sprintf("%s.data.%d", session, m)
		g, err := dist.JoinSession(ctx, coordURL, name, int(d), int(dp))
		if err != nil {
			return nil, err
		}
		topo.Data = g
	}
	if mp > 1 {
		name := fmt.Sprintf("%s.model.%d", session, d)
		g, err := dist.JoinSession(ctx, coordURL, name, int(m), int(mp))
		if err != nil {
			return nil, err
		}
		topo.Model = g
	}
	return topo, nil
}

// syntheticBatch draws one regression batch: x ~ N(0,1), y = sum(x)/4 + 0.5.
// The target is exactly representable in every supported dtype.
func syntheticBatch(rng *rand.Rand, batch int, dt tensor.DataType) (xs, ys *tensor.RawTensor) {
	xv := make([]float32, batch*trainFeatures)
	yv := make([]float32, batch)
	for i := 0; i < batch; i++ {
		var sum float32
		for j := 0; j < trainFeatures; j++ {
			v := float32(rng.NormFloat64())
			xv[i*trainFeatures+j] = v
			sum += v
		}
		yv[i] = sum/4 + 0.5
	}
	return tensor.RawFrom(xv, tensor.Shape{batch, trainFeatures}, dt),
		tensor.RawFrom(yv, tensor.Shape{batch, 1}, dt)
}

func parseDType(name string) (tensor.DataType, error) {
	switch name {
	case "float16", "f16", "fp16":
		return tensor.Float16, nil
	case "bfloat16", "bf16":
		return tensor.BFloat16, nil
	case "float32", "f32", "fp32":
		return tensor.Float32, nil
	default:
		return 0, fmt.Errorf("unknown dtype %q (use float16, bfloat16, or float32)", name)
	}
}
