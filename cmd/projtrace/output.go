package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"projtrace/internal/projection"
	"projtrace/internal/resultindex"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonFloat encodes non-finite values as null; encoding/json refuses them.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type peakView struct {
	Index     int       `json:"index"`
	Offset    jsonFloat `json:"offset"`
	Sigma     jsonFloat `json:"sigma,omitempty"`
	Amplitude jsonFloat `json:"amplitude,omitempty"`
	MovedPeak int       `json:"moved_peak"`
	Baseline  jsonFloat `json:"baseline"`
	Centroid  jsonFloat `json:"centroid"`
	Width     jsonFloat `json:"width"`
}

type boxView struct {
	Name        string     `json:"name"`
	X           [2]int     `json:"x"`
	Y           [2]int     `json:"y"`
	Orientation string     `json:"orientation"`
	Method      string     `json:"method"`
	HullRange   *[2]int    `json:"hull_range,omitempty"`
	Center      jsonFloat  `json:"center"`
	Error       jsonFloat  `json:"error"`
	Converged   bool       `json:"converged"`
	Peaks       []peakView `json:"peaks"`
}

type imageView struct {
	Image string    `json:"image"`
	RunID string    `json:"run_id,omitempty"`
	Boxes []boxView `json:"boxes"`
}

func newImageView(image, runID string, results []projection.BoxResult) imageView {
	out := imageView{Image: image, RunID: runID, Boxes: make([]boxView, 0, len(results))}
	for _, r := range results {
		bv := boxView{
			Name:        r.Name,
			X:           r.Box.X,
			Y:           r.Box.Y,
			Orientation: string(r.Box.Orientation),
			Method:      string(r.Box.Method),
			Center:      jsonFloat(r.Center),
			Error:       jsonFloat(r.Error),
			Converged:   r.Converged,
			Peaks:       make([]peakView, len(r.Peaks)),
		}
		if r.HullRange != nil {
			bv.HullRange = &[2]int{r.HullRange.Start, r.HullRange.End}
		}
		for i, pk := range r.Peaks {
			bv.Peaks[i] = peakView{
				Index:     pk.Index,
				Offset:    jsonFloat(pk.Offset),
				Sigma:     jsonFloat(pk.Sigma),
				Amplitude: jsonFloat(pk.Amplitude),
				MovedPeak: pk.Position,
				Baseline:  jsonFloat(pk.Baseline),
				Centroid:  jsonFloat(pk.Centroid),
				Width:     jsonFloat(pk.Width),
			}
		}
		out.Boxes = append(out.Boxes, bv)
	}
	return out
}

type runView struct {
	ID             string    `json:"id"`
	Image          string    `json:"image"`
	ProgramVersion string    `json:"program_version"`
	CreatedAt      time.Time `json:"created_at"`
	Peaks          []rowView `json:"peaks"`
}

type rowView struct {
	Box       string    `json:"box"`
	Index     int       `json:"index"`
	Offset    jsonFloat `json:"offset"`
	MovedPeak int       `json:"moved_peak"`
	Baseline  jsonFloat `json:"baseline"`
	Centroid  jsonFloat `json:"centroid"`
	Width     jsonFloat `json:"width"`
	FitError  jsonFloat `json:"fit_error"`
}

func newRunViews(runs []resultindex.Run) []runView {
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		rv := runView{
			ID:             run.ID,
			Image:          run.ImagePath,
			ProgramVersion: run.ProgramVersion,
			CreatedAt:      run.CreatedAt,
			Peaks:          make([]rowView, len(run.Peaks)),
		}
		for i, pk := range run.Peaks {
			rv.Peaks[i] = rowView{
				Box:       pk.Box,
				Index:     pk.PeakIndex,
				Offset:    jsonFloat(pk.Offset),
				MovedPeak: pk.MovedPeak,
				Baseline:  jsonFloat(pk.Baseline),
				Centroid:  jsonFloat(pk.Centroid),
				Width:     jsonFloat(pk.Width),
				FitError:  jsonFloat(pk.FitError),
			}
		}
		out = append(out, rv)
	}
	return out
}

func formatNumber(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// printResults renders one table row per peak.
func printResults(out io.Writer, results []projection.BoxResult) {
	if len(results) == 0 {
		fmt.Fprintln(out, "No results")
		return
	}
	rows := make([][]string, 0)
	for _, r := range results {
		for _, pk := range r.Peaks {
			rows = append(rows, []string{
				r.Name,
				strconv.Itoa(pk.Index),
				formatNumber(pk.Offset, 2),
				strconv.Itoa(pk.Position),
				formatNumber(pk.Baseline, 2),
				formatNumber(pk.Centroid, 3),
				formatNumber(pk.Width, 3),
				formatNumber(r.Error, 4),
				yesNo(r.Converged),
			})
		}
	}
	fmt.Fprintln(out, renderTable([]column{
		groupedColumn("Box"),
		numberColumn("Peak"),
		numberColumn("Offset"),
		numberColumn("Moved"),
		numberColumn("Baseline"),
		numberColumn("Centroid"),
		numberColumn("Width"),
		numberColumn("Error"),
		textColumn("Converged"),
	}, rows))
}

func printRuns(out io.Writer, runs []resultindex.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs")
		return
	}
	rows := make([][]string, 0)
	for _, run := range runs {
		for _, pk := range run.Peaks {
			rows = append(rows, []string{
				shortID(run.ID),
				run.ImagePath,
				run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				pk.Box,
				strconv.Itoa(pk.PeakIndex),
				formatNumber(pk.Centroid, 3),
				formatNumber(pk.Width, 3),
				formatNumber(pk.FitError, 4),
			})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No recorded peaks")
		return
	}
	fmt.Fprintln(out, renderTable([]column{
		groupedColumn("Run"),
		groupedColumn("Image"),
		groupedColumn("Recorded"),
		textColumn("Box"),
		numberColumn("Peak"),
		numberColumn("Centroid"),
		numberColumn("Width"),
		numberColumn("Error"),
	}, rows))
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
