package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/deepfathom/dpslam"
	"github.com/deepfathom/dpslam/nodemap"
	"github.com/deepfathom/dpslam/observation"
	"github.com/deepfathom/dpslam/particlefilter"
	"github.com/deepfathom/dpslam/persistence"
	"github.com/deepfathom/dpslam/randm"
	"github.com/deepfathom/dpslam/search"
)

// logEvent is one line of a mission log's newline-delimited JSON: a single
// dead-reckoning, perception or housekeeping tick fed to the engine in
// file order. Fields are grouped by kind; only the ones relevant to Kind
// need be present.
type logEvent struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	Velocity   [3]float64 `json:"velocity,omitempty"`
	Covariance [9]float64 `json:"covariance,omitempty"`

	Yaw   float64 `json:"yaw,omitempty"`
	Depth float64 `json:"depth,omitempty"`

	Speed [3]float64 `json:"speed,omitempty"`

	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Variance float64 `json:"variance,omitempty"`

	AngleRad float64 `json:"angle_rad,omitempty"`
	Features []struct {
		RangeMM    float64 `json:"range_mm"`
		Confidence float64 `json:"confidence"`
	} `json:"features,omitempty"`

	BeamYawRad float64 `json:"beam_yaw_rad,omitempty"`
	RangeM     float64 `json:"range_m,omitempty"`

	PositionX float64 `json:"position_x,omitempty"`
	PositionY float64 `json:"position_y,omitempty"`
	VarianceX float64 `json:"variance_x,omitempty"`
	VarianceY float64 `json:"variance_y,omitempty"`
	Tag       string  `json:"tag,omitempty"`

	Pose [3]float64 `json:"pose,omitempty"`
}

var errUnknownEventKind = errors.New("dpslamctl: unrecognised log event kind")

// applyEvent dispatches one logEvent onto engine per §4.F's entry points.
func applyEvent(engine *dpslam.Engine, ev logEvent) error {
	switch ev.Kind {
	case "dynamic":
		cov := ev.Covariance
		var covMat *mat.SymDense
		if cov != ([9]float64{}) {
			covMat = randm.CovarianceMatrix3(cov)
		}
		engine.Dynamic(particlefilter.Control{
			Velocity:   ev.Velocity,
			Covariance: covMat,
			Timestamp:  ev.Timestamp,
		})
	case "orientation":
		engine.SetOrientation(ev.Yaw, ev.Depth)
	case "speed":
		engine.SetSpeed(ev.Speed)
	case "static_depth":
		engine.ObserveStaticDepth(ev.X, ev.Y, ev.Depth, ev.Variance)
	case "depth":
		engine.Observe(ev.Depth, ev.Timestamp)
	case "sonar":
		features := make([]observation.SonarFeature, len(ev.Features))
		for i, f := range ev.Features {
			features[i] = observation.SonarFeature{RangeMM: f.RangeMM, Confidence: f.Confidence}
		}
		sweep := observation.SonarSweep{AngleRad: ev.AngleRad, Features: features}
		return engine.ObserveSonarSweep(sweep, ev.Timestamp)
	case "laser":
		return engine.RateLaser(ev.BeamYawRad, ev.RangeM)
	case "gps":
		return engine.RatePerception(observation.GPSObservation{
			Position: [2]float64{ev.PositionX, ev.PositionY},
			Variance: [2]float64{ev.VarianceX, ev.VarianceY},
		})
	case "pipeline":
		return engine.RatePerception(observation.PipelineObservation{Tag: ev.Tag, Variance: ev.Variance})
	case "buoy":
		return engine.RatePerception(observation.BuoyObservation{Tag: ev.Tag, Variance: ev.Variance})
	case "teleport":
		engine.Teleport(ev.Pose)
	case "step":
		result := engine.Step()
		for _, d := range result.Diagnostics {
			log.Printf("diagnostic: %s: %s", d.Kind, d.Message)
		}
		log.Printf("step: ess=%.2f resampled=%v skipped=%v", result.ESS, result.Resampled, result.SkippedResample)
	default:
		return fmt.Errorf("%w: %s", errUnknownEventKind, ev.Kind)
	}
	return nil
}

// replay drives one mission log file through a freshly initialised engine,
// then writes its Cloud snapshot and QA report to outdirURI.
func replay(logURI, configURI, worldURI, outdirURI string, tiledbConfigURI string) error {
	config := dpslam.DefaultConfig()
	if configURI != "" {
		var err error
		config, err = dpslam.LoadConfig(configURI)
		if err != nil {
			return err
		}
	}

	engine, err := dpslam.Init(config, time.Now())
	if err != nil {
		return err
	}

	if worldURI != "" {
		world, err := nodemap.LoadPolyWorld(worldURI, config.Grid.Resolution/2)
		if err != nil {
			return err
		}
		engine.InitializeStatics(world)
	}

	log.Println("Replaying mission log:", logURI)
	file, err := os.Open(logURI)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev logEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("dpslamctl: line %d: %w", lineNo, err)
		}
		if err := applyEvent(engine, ev); err != nil {
			log.Printf("dpslamctl: line %d: %v", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	_, base := filepath.Split(logURI)

	qa := engine.QA()
	qaURI := filepath.Join(outdirURI, base+"-qa.json")
	if _, err := dpslam.WriteJSON(qaURI, tiledbConfigURI, qa); err != nil {
		return err
	}

	cloud, err := engine.GetCloud(0)
	if err != nil {
		return err
	}

	var config_ *tiledb.Config
	if tiledbConfigURI == "" {
		config_, err = tiledb.NewConfig()
	} else {
		config_, err = tiledb.LoadConfig(tiledbConfigURI)
	}
	if err != nil {
		return err
	}
	defer config_.Free()

	ctx, err := tiledb.NewContext(config_)
	if err != nil {
		return err
	}
	defer ctx.Free()

	cloudURI := filepath.Join(outdirURI, base+"-cloud.tiledb")
	if err := persistence.CreateCloudArray(ctx, cloudURI); err != nil {
		return err
	}
	if err := persistence.WriteCloud(ctx, cloudURI, cloud); err != nil {
		return err
	}

	log.Println("Finished mission log:", logURI)
	return nil
}

// replayBatch fans a directory trawl of mission logs out across a fixed
// worker pool, mirroring the teacher's convert_gsf_list/pond.New usage.
func replayBatch(uri, configURI, worldURI, outdirURI, tiledbConfigURI string) error {
	log.Println("Searching uri:", uri)
	items, err := search.FindMissionLogs(uri, tiledbConfigURI)
	if err != nil {
		return err
	}
	log.Println("Number of mission logs to process:", len(items))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	n := runtime.NumCPU() * 2
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, name := range items {
		itemURI := name
		pool.Submit(func() {
			if err := replay(itemURI, configURI, worldURI, outdirURI, tiledbConfigURI); err != nil {
				log.Printf("dpslamctl: %s: %v", itemURI, err)
			}
		})
	}

	return nil
}

func main() {
	app := &cli.App{
		Name:  "dpslamctl",
		Usage: "replay recorded mission logs through the DP-SLAM localization/mapping engine",
		Commands: []*cli.Command{
			{
				Name: "replay",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log-uri", Usage: "URI or pathname to a mission log (newline-delimited JSON).", Required: true},
					&cli.StringFlag{Name: "config-uri", Usage: "URI or pathname to an engine YAML configuration file."},
					&cli.StringFlag{Name: "world-uri", Usage: "URI or pathname to a static world/node map JSON definition."},
					&cli.StringFlag{Name: "outdir-uri", Usage: "URI or pathname to an output directory.", Required: true},
					&cli.StringFlag{Name: "tiledb-config-uri", Usage: "URI or pathname to a TileDB config file."},
				},
				Action: func(cCtx *cli.Context) error {
					return replay(
						cCtx.String("log-uri"),
						cCtx.String("config-uri"),
						cCtx.String("world-uri"),
						cCtx.String("outdir-uri"),
						cCtx.String("tiledb-config-uri"),
					)
				},
			},
			{
				Name: "replay-batch",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "uri", Usage: "URI or pathname to a directory containing mission logs.", Required: true},
					&cli.StringFlag{Name: "config-uri", Usage: "URI or pathname to an engine YAML configuration file."},
					&cli.StringFlag{Name: "world-uri", Usage: "URI or pathname to a static world/node map JSON definition."},
					&cli.StringFlag{Name: "outdir-uri", Usage: "URI or pathname to an output directory.", Required: true},
					&cli.StringFlag{Name: "tiledb-config-uri", Usage: "URI or pathname to a TileDB config file."},
				},
				Action: func(cCtx *cli.Context) error {
					return replayBatch(
						cCtx.String("uri"),
						cCtx.String("config-uri"),
						cCtx.String("world-uri"),
						cCtx.String("outdir-uri"),
						cCtx.String("tiledb-config-uri"),
					)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
