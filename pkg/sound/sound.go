package sound

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// silenceThreshold is the RMS under which a track is considered silent.
const silenceThreshold = 0.001

// Analyzer inspects a decoded MP3 track.
type Analyzer struct {
	mono     []float64
	rate     int
	duration time.Duration
}

// Load reads an MP3 track from an http address or a local path.
func Load(ctx context.Context, client *http.Client, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		b, err := os.ReadFile(strings.TrimPrefix(src, "file://"))
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read %s: %w", src, err)
		}
		return b, nil
	}
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't download %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sound: couldn't download %s: status %d", src, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't read %s: %w", src, err)
	}
	return b, nil
}

// NewAnalyzer decodes MP3 data.
func NewAnalyzer(data []byte) (*Analyzer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}
	rate := decoder.SampleRate()
	if rate <= 0 {
		return nil, fmt.Errorf("sound: invalid sample rate %d", rate)
	}

	// Decoded samples are 16-bit little endian stereo
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't read samples: %w", err)
	}
	mono := make([]float64, 0, len(pcm)/4)
	for i := 0; i+3 < len(pcm); i += 4 {
		left := float64(int16(pcm[i])|int16(pcm[i+1])<<8) / 32768.0
		right := float64(int16(pcm[i+2])|int16(pcm[i+3])<<8) / 32768.0
		mono = append(mono, (left+right)/2.0)
	}
	return newAnalyzer(mono, rate), nil
}

func newAnalyzer(mono []float64, rate int) *Analyzer {
	return &Analyzer{
		mono:     mono,
		rate:     rate,
		duration: time.Duration(float64(len(mono)) / float64(rate) * float64(time.Second)),
	}
}

func (a *Analyzer) Duration() time.Duration {
	return a.duration
}

// Silent reports whether the whole track is below the silence threshold.
func (a *Analyzer) Silent() bool {
	if len(a.mono) == 0 {
		return true
	}
	return calculateRMS(a.mono) < silenceThreshold
}

func (a *Analyzer) windows(windowSize time.Duration, fn func([]float64)) {
	windowLength := int(float64(a.rate) * windowSize.Seconds())
	if windowLength < 1 {
		windowLength = 1
	}
	for i := 0; i < len(a.mono); i += windowLength {
		end := i + windowLength
		if end > len(a.mono) {
			end = len(a.mono)
		}
		fn(a.mono[i:end])
	}
}

// Resample returns the min and max of every window.
func (a *Analyzer) Resample(windowSize time.Duration) []float64 {
	var resampled []float64
	a.windows(windowSize, func(window []float64) {
		var min, max float64
		for _, v := range window {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		resampled = append(resampled, min, max)
	})
	return resampled
}

// RMS returns the root mean square of every window.
func (a *Analyzer) RMS(windowSize time.Duration) []float64 {
	var rms []float64
	a.windows(windowSize, func(window []float64) {
		rms = append(rms, calculateRMS(window))
	})
	return rms
}

func calculateRMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var squareSum float64
	for _, sample := range samples {
		squareSum += sample * sample
	}
	return math.Sqrt(squareSum / float64(len(samples)))
}

// HasFadeOut reports whether the volume decreases consistently during the
// last second.
func (a *Analyzer) HasFadeOut() bool {
	rmsWindow := 100 * time.Millisecond
	analysisWindow := int(time.Second / rmsWindow)
	rms := a.RMS(rmsWindow)
	if len(rms) < analysisWindow {
		return false
	}
	rms = rms[len(rms)-analysisWindow:]

	var count int
	for i := 1; i < len(rms); i++ {
		if inc := rms[i] - rms[i-1]; inc >= 0 || -inc <= 0.001 {
			count++
		}
	}
	return count <= 1
}

// PlotWave draws the waveform as a JPEG image.
func (a *Analyzer) PlotWave(name string) ([]byte, error) {
	window := 50 * time.Millisecond
	return createPlot(name, a.Resample(window), -1, 1, window.Seconds()/2, a.duration)
}

// PlotRMS draws the volume as a JPEG image.
func (a *Analyzer) PlotRMS(name string) ([]byte, error) {
	window := 50 * time.Millisecond
	return createPlot(name, a.RMS(window), 0, 1, window.Seconds(), a.duration)
}

func createPlot(name string, data []float64, min, max float64, step float64, d time.Duration) ([]byte, error) {
	p := plot.New()
	p.Y.Min = min
	p.Y.Max = max
	p.Title.Text = fmt.Sprintf("%s %s", name, d.Round(time.Second))
	p.X.Label.Text = "time (s)"

	pts := make(plotter.XYs, len(data))
	for i, v := range data {
		pts[i].X = float64(i) * step
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create line plotter: %w", err)
	}
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Color = color.RGBA{R: 90, G: 60, B: 200, A: 255}
	p.Add(l)

	c, err := p.WriterTo(6*vg.Inch, 3*vg.Inch, "jpeg")
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sound: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}
