package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gopkg.in/yaml.v3"

	"github.com/edp1096/toy-qpm/pkg/analysis"
)

func sampleCurve() analysis.TuningCurve {
	return analysis.TuningCurve{
		{Temperature: 20, Signal: analysis.NoData, Idler: analysis.NoData, Failure: analysis.FailureConvergence},
		{Temperature: 40, Signal: 0.8418, Idler: 0.7815, Valid: true},
		{Temperature: 60, Signal: 0.8788, Idler: 0.7490, Valid: true},
		{Temperature: 70, Signal: analysis.NoData, Idler: analysis.NoData, Failure: analysis.FailureDegenerate},
		{Temperature: 80, Signal: 0.9064, Idler: 0.7304, Valid: true},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleCurve()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "temperature_c,signal_um,idler_um,valid,failure", lines[0])
	assert.Contains(t, lines[1], "NaN")
	assert.True(t, strings.HasSuffix(lines[1], ",false,convergence"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",true,none"), lines[2])
	assert.True(t, strings.HasSuffix(lines[4], ",false,degenerate"), lines[4])
}

func TestDataFrame(t *testing.T) {
	df := DataFrame(sampleCurve())
	require.NoError(t, df.Err)

	nrow, ncol := df.Dims()
	assert.Equal(t, 5, nrow)
	assert.Equal(t, 5, ncol)
	assert.Equal(t, []float64{20, 40, 60, 70, 80}, df.Col(ColTemperature).Float())
	assert.Equal(t, 0.749, df.Col(ColIdler).Float()[2])
}

func TestWriteYAML(t *testing.T) {
	report := Report{
		Title:  "degenerate",
		Pump:   0.405,
		Signal: 0.81,
		Idler:  0.81,
		T0:     35,
		Tref:   25,
		Period: 3.42628,
		Method: "newton",
		Points: Points(sampleCurve()),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, report))
	assert.NotContains(t, buf.String(), ".nan")

	var decoded Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 3.42628, decoded.Period)
	require.Len(t, decoded.Points, 5)

	gap := decoded.Points[0]
	assert.Nil(t, gap.Signal)
	assert.Nil(t, gap.Idler)
	assert.Equal(t, "convergence", gap.Failure)

	ok := decoded.Points[2]
	require.NotNil(t, ok.Idler)
	assert.Equal(t, 0.749, *ok.Idler)
	assert.Empty(t, ok.Failure)
}

func TestSegments(t *testing.T) {
	segs := segments(sampleCurve(), func(p analysis.TuningPoint) float64 { return p.Idler })

	assert.Equal(t, []plotter.XYs{
		{{X: 40, Y: 0.7815}, {X: 60, Y: 0.7490}},
		{{X: 80, Y: 0.7304}},
	}, segs)

	assert.Empty(t, segments(analysis.TuningCurve{sampleCurve()[0]}, func(p analysis.TuningPoint) float64 { return p.Idler }))
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, SavePNG(sampleCurve(), "ppKTP tuning", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}
