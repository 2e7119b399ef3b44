package fraud

import (
	"bytes"
	"fmt"
)

const (
	acceptableQuality = 0.3

	minUsefulPhotoBytes = 5 * 1024
	goodPhotoBytes      = 20 * 1024
	maxPhotoBytes       = 10 * 1024 * 1024
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G'}

	// Software tags left by common editors; their presence in payload
	// metadata suggests the image was processed after capture.
	editorMarkers = [][]byte{
		[]byte("photoshop"), []byte("Photoshop"),
		[]byte("gimp"), []byte("GIMP"),
		[]byte("lightroom"), []byte("Lightroom"),
		[]byte("snapseed"), []byte("Snapseed"),
	}

	screenshotMarkers = [][]byte{
		[]byte("screenshot"), []byte("Screenshot"), []byte("ScreenCapture"),
	}
)

// HeuristicPhotoAnalyzer is the built-in PhotoAnalyzer: a format/size quality
// proxy plus payload marker scans for editing and screenshotting. It stands
// in for a real image-forensics and face-match pipeline.
type HeuristicPhotoAnalyzer struct{}

var _ PhotoAnalyzer = (*HeuristicPhotoAnalyzer)(nil)

// NewHeuristicPhotoAnalyzer creates the default photo analyzer.
func NewHeuristicPhotoAnalyzer() *HeuristicPhotoAnalyzer {
	return &HeuristicPhotoAnalyzer{}
}

// AnalyzePhoto scores a photo payload in [0,1].
func (a *HeuristicPhotoAnalyzer) AnalyzePhoto(photo []byte) SignalResult {
	var result SignalResult
	if len(photo) == 0 {
		return result
	}

	quality := estimateQuality(photo)
	if quality < acceptableQuality {
		result.Score += 0.4
		result.Factors = append(result.Factors,
			fmt.Sprintf("photo quality %.2f below acceptable threshold", quality))
	}

	if containsAny(photo, editorMarkers) {
		result.Score += 0.3
		result.Factors = append(result.Factors, "editing software traces in photo metadata")
	}

	// Screenshots arrive as PNG; live camera captures are JPEG.
	if bytes.HasPrefix(photo, pngMagic) || containsAny(photo, screenshotMarkers) {
		result.Score += 0.5
		result.Factors = append(result.Factors, "payload looks like a screenshot rather than a camera capture")
	}

	result.Score = clamp01(result.Score)
	return result
}

// estimateQuality is a crude format/size proxy for image quality in [0,1].
func estimateQuality(photo []byte) float64 {
	quality := 0.5

	switch {
	case bytes.HasPrefix(photo, jpegMagic):
		quality += 0.3
	case bytes.HasPrefix(photo, pngMagic):
		quality += 0.1
	default:
		quality -= 0.3
	}

	size := len(photo)
	switch {
	case size < minUsefulPhotoBytes:
		quality -= 0.3
	case size >= goodPhotoBytes && size <= maxPhotoBytes:
		quality += 0.2
	case size > maxPhotoBytes:
		quality -= 0.2
	}

	return clamp01(quality)
}

func containsAny(payload []byte, markers [][]byte) bool {
	for _, m := range markers {
		if bytes.Contains(payload, m) {
			return true
		}
	}
	return false
}
