package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatBatchResults formats the per-file results in the specified format.
func formatBatchResults(files []FileResult, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(files)
	case "csv":
		return formatCSV(files)
	default: // text
		return formatText(files)
	}
}

type jsonFile struct {
	FileResult
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func status(f FileResult) string {
	if f.Failed() {
		return "failed"
	}
	return "ok"
}

// formatJSON formats results as JSON.
func formatJSON(files []FileResult) (string, error) {
	out := struct {
		Files []jsonFile `json:"files"`
	}{Files: make([]jsonFile, len(files))}

	for i, f := range files {
		out.Files[i] = jsonFile{FileResult: f, Status: status(f)}
		if f.Err != nil {
			out.Files[i].Error = f.Err.Error()
		}
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts), err
}

// formatCSV formats results as CSV.
func formatCSV(files []FileResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write([]string{
		"input", "name", "output", "status", "polygons", "points", "light_pixels", "dark_pixels", "duration_ms", "error",
	}); err != nil {
		return "", err
	}

	for _, f := range files {
		errText := ""
		if f.Err != nil {
			errText = f.Err.Error()
		}
		if err := writer.Write([]string{
			f.Input,
			f.Name,
			f.Output,
			status(f),
			strconv.Itoa(f.Stats.Polygons),
			strconv.Itoa(f.Stats.Points),
			strconv.Itoa(f.Stats.LightPixels),
			strconv.Itoa(f.Stats.DarkPixels),
			strconv.FormatInt(f.Duration.Milliseconds(), 10),
			errText,
		}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as one line per file.
func formatText(files []FileResult) (string, error) {
	var output strings.Builder
	for _, f := range files {
		if f.Failed() {
			fmt.Fprintf(&output, "FAIL %s: %v\n", f.Input, f.Err)
			continue
		}
		fmt.Fprintf(&output, "OK   %s -> %s (%d polygons, %v)\n",
			f.Input, f.Output, f.Stats.Polygons, f.Duration.Round(time.Millisecond))
	}
	return output.String(), nil
}
