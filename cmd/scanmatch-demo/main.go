// Command scanmatch-demo builds a synthetic laser scan of a circular room,
// registers it into a fresh occupancy grid, perturbs the true pose, and
// reports how well Optimize, ICPOptimize, and Likelihood recover it.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/openslam-go/scanmatch/config"
	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"github.com/openslam-go/scanmatch/scanmatch"
	"github.com/openslam-go/scanmatch/scoreplot"
	"github.com/openslam-go/scanmatch/telemetry"
)

var (
	configPath = flag.String("config", "", "path to a JSON MatcherConfig overlay (default: built-in defaults)")
	beamCount  = flag.Int("beams", 180, "number of laser beams in the synthetic scan")
	roomRadius = flag.Float64("room-radius", 4.0, "radius in meters of the synthetic circular room")
	perturbX   = flag.Float64("perturb-x", 0.3, "x offset in meters applied to the search's starting pose")
	perturbY   = flag.Float64("perturb-y", -0.2, "y offset in meters applied to the search's starting pose")
	perturbTh  = flag.Float64("perturb-theta", 0.15, "theta offset in radians applied to the search's starting pose")
	dbPath     = flag.String("db", "", "sqlite telemetry database path (default: telemetry disabled)")
	plotPath   = flag.String("plot", "", "PNG path to write a score-surface heatmap at the recovered pose (default: disabled)")
	htmlPath   = flag.String("html-plot", "", "path to write an interactive HTML score-surface scatter plot (default: disabled)")
	sensorID   = flag.String("sensor-id", "demo-sensor", "sensor identifier recorded in telemetry rows")
)

func main() {
	flag.Parse()

	cfg := config.DefaultMatcherConfig()
	if *configPath != "" {
		loaded, err := config.LoadMatcherConfig(*configPath)
		if err != nil {
			log.Fatalf("load config %q: %v", *configPath, err)
		}
		cfg = loaded
	}

	angles := make([]float64, *beamCount)
	for i := range angles {
		angles[i] = -math.Pi + float64(i)*(2*math.Pi/float64(len(angles)))
	}
	matcher, err := scanmatch.NewMatcher(cfg, scanmatch.LaserGeometry{Angles: angles})
	if err != nil {
		log.Fatalf("new matcher: %v", err)
	}

	grid := gridmap.NewGrid(-2*(*roomRadius), -2*(*roomRadius), 2*(*roomRadius), 2*(*roomRadius), cfg.Delta, cfg.PatchSize)

	truePose := geom.OrientedPoint{}
	readings := make([]float64, len(angles))
	for i := range readings {
		readings[i] = *roomRadius
	}

	if _, err := matcher.RegisterScan(grid, truePose, readings); err != nil {
		log.Fatalf("register scan: %v", err)
	}
	log.Printf("registered a %d-beam scan of a %.1fm radius room at the origin", len(angles), *roomRadius)

	start := geom.OrientedPoint{X: *perturbX, Y: *perturbY, Theta: *perturbTh}
	startScore := matcher.Score(grid, start, readings)

	optimized := 0
	optStart := time.Now()
	optPose, optScore := matcher.Optimize(grid, start, readings)
	optElapsed := time.Since(optStart)
	optimized++
	log.Printf("Optimize:    start score=%.3f -> pose=%v score=%.3f (%.2fms)",
		startScore, optPose, optScore, float64(optElapsed.Microseconds())/1000)

	icpStart := time.Now()
	icpPose, icpScore := matcher.ICPOptimize(grid, start, readings)
	icpElapsed := time.Since(icpStart)
	log.Printf("ICPOptimize: start score=%.3f -> pose=%v score=%.3f (%.2fms)",
		startScore, icpPose, icpScore, float64(icpElapsed.Microseconds())/1000)

	likStart := time.Now()
	mean, _, lmax, logEvidence, err := matcher.Likelihood(grid, start, readings)
	likElapsed := time.Since(likStart)
	if err != nil {
		log.Printf("Likelihood:  no match (%v)", err)
	} else {
		log.Printf("Likelihood:  mean=%v lmax=%.3f logEvidence=%.3f (%.2fms)",
			mean, lmax, logEvidence, float64(likElapsed.Microseconds())/1000)
	}

	ctx := context.Background()
	if *dbPath != "" {
		store, err := telemetry.Open(*dbPath)
		if err != nil {
			log.Fatalf("open telemetry store %q: %v", *dbPath, err)
		}
		defer store.Close()

		runID, err := store.Record(ctx, telemetry.Run{
			SensorID:   *sensorID,
			Operation:  telemetry.OperationOptimize,
			Iterations: optimized,
			Elapsed:    optElapsed,
			BestScore:  optScore,
			Pose:       optPose,
			Config:     cfg,
		})
		if err != nil {
			log.Fatalf("record telemetry: %v", err)
		}
		log.Printf("recorded telemetry run %s to %s", runID, *dbPath)
	}

	if *plotPath != "" || *htmlPath != "" {
		surface, err := scoreplot.Sample(matcher, grid, optPose, 1.0, cfg.Delta*2, readings)
		if err != nil {
			log.Fatalf("sample score surface: %v", err)
		}

		if *plotPath != "" {
			title := "score surface at " + filepath.Base(*plotPath)
			if err := scoreplot.Save(surface, title, *plotPath); err != nil {
				log.Fatalf("save score surface: %v", err)
			}
			log.Printf("wrote score surface heatmap to %s", *plotPath)
		}

		if *htmlPath != "" {
			f, err := os.Create(*htmlPath)
			if err != nil {
				log.Fatalf("create %q: %v", *htmlPath, err)
			}
			defer f.Close()
			if err := scoreplot.RenderHTML(surface, "score surface at "+filepath.Base(*htmlPath), f); err != nil {
				log.Fatalf("render HTML score surface: %v", err)
			}
			log.Printf("wrote interactive score surface to %s", *htmlPath)
		}
	}
}
