package scoreplot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openslam-go/scanmatch/config"
	"github.com/openslam-go/scanmatch/geom"
	"github.com/openslam-go/scanmatch/gridmap"
	"github.com/openslam-go/scanmatch/scanmatch"
)

func newTestMatcher(t *testing.T) (*scanmatch.Matcher, *gridmap.Grid, []float64) {
	t.Helper()
	cfg := config.DefaultMatcherConfig()
	cfg.Delta = 0.1
	cfg.KernelSize = 1
	angles := make([]float64, 16)
	for i := range angles {
		angles[i] = -math.Pi + float64(i)*(2*math.Pi/float64(len(angles)))
	}
	m, err := scanmatch.NewMatcher(cfg, scanmatch.LaserGeometry{Angles: angles})
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}
	grid := gridmap.NewGrid(-6, -6, 6, 6, cfg.Delta, cfg.PatchSize)
	readings := make([]float64, len(angles))
	for i := range readings {
		readings[i] = 3.0
	}
	pose := geom.OrientedPoint{}
	if _, err := m.RegisterScan(grid, pose, readings); err != nil {
		t.Fatalf("RegisterScan: %v", err)
	}
	return m, grid, readings
}

func TestSampleProducesSquareGridPeakedAtOrigin(t *testing.T) {
	m, grid, readings := newTestMatcher(t)
	pose := geom.OrientedPoint{}

	surface, err := Sample(m, grid, pose, 0.3, 0.1, readings)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if surface.Width != surface.Height || surface.Width != 7 {
		t.Fatalf("expected a 7x7 grid for range 0.3 step 0.1, got %dx%d", surface.Width, surface.Height)
	}

	center := surface.Scores[3][3]
	corner := surface.Scores[0][0]
	if center < corner {
		t.Fatalf("score at the registered pose (%v) should be at least as high as the grid corner (%v)", center, corner)
	}
}

func TestSampleRejectsNonPositiveStepOrRange(t *testing.T) {
	m, grid, readings := newTestMatcher(t)
	pose := geom.OrientedPoint{}

	if _, err := Sample(m, grid, pose, 0, 0.1, readings); err == nil {
		t.Fatal("expected error for non-positive linearRange")
	}
	if _, err := Sample(m, grid, pose, 0.3, 0, readings); err == nil {
		t.Fatal("expected error for non-positive step")
	}
}

func TestSaveWritesPNGFile(t *testing.T) {
	m, grid, readings := newTestMatcher(t)
	pose := geom.OrientedPoint{}

	surface, err := Sample(m, grid, pose, 0.3, 0.1, readings)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "score.png")
	if err := Save(surface, "test surface", outPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		t.Fatalf("expected PNG file at %s: %v", outPath, err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty PNG file")
	}
}

func TestRenderHTMLWritesScatterMarkup(t *testing.T) {
	m, grid, readings := newTestMatcher(t)
	pose := geom.OrientedPoint{}

	surface, err := Sample(m, grid, pose, 0.3, 0.1, readings)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderHTML(surface, "test surface", &buf); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty HTML output")
	}
	out := buf.String()
	if !strings.Contains(out, "<html") {
		t.Fatalf("expected HTML document markup, got: %.100s...", out)
	}
}
