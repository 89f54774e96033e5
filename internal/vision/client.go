package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/your-org/neurovision/internal/config"
	"github.com/your-org/neurovision/internal/models"
)

// Detector is the external landmark-extraction capability: image bytes in,
// normalized landmark coordinates out.
type Detector interface {
	Detect(ctx context.Context, image []byte) (*models.DetectionResult, error)
}

// HTTPDetector posts frames to the external face-mesh service.
type HTTPDetector struct {
	url    string
	client *http.Client
}

func NewHTTPDetector(cfg config.VisionConfig) *HTTPDetector {
	return &HTTPDetector{
		url:    cfg.DetectorURL,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// detectorResponse mirrors the wire format of the landmark service: a flat
// [x0,y0,x1,y1,...] slice of normalized coordinates, or a "no_face" message
// with null landmarks.
type detectorResponse struct {
	Landmarks []float64 `json:"landmarks"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
}

func (d *HTTPDetector) Detect(ctx context.Context, image []byte) (*models.DetectionResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, &body)
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call detector: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector returned %d: %s", resp.StatusCode, data)
	}

	var dr detectorResponse
	if err := json.Unmarshal(data, &dr); err != nil {
		return nil, fmt.Errorf("decode detector response: %w", err)
	}
	if dr.Error != "" {
		return nil, fmt.Errorf("detector error: %s", dr.Error)
	}

	return ResultFromLandmarks(dr.Landmarks, dr.Width, dr.Height, dr.Message), nil
}

// ResultFromLandmarks builds a detection result from a flat landmark slice,
// deriving the face-area percentage. Nil landmarks mean no face was found,
// which is a valid (zero-face) result, not an error.
func ResultFromLandmarks(landmarks []float64, width, height int, message string) *models.DetectionResult {
	if len(landmarks) < 2 {
		return &models.DetectionResult{Message: "no_face"}
	}
	return &models.DetectionResult{
		FaceCount:   1,
		Landmarks:   landmarks,
		Width:       width,
		Height:      height,
		FaceAreaPct: FaceAreaPct(landmarks),
		Message:     message,
	}
}

// FaceAreaPct returns the bounding-box area of the normalized landmarks as a
// percentage of the frame.
func FaceAreaPct(landmarks []float64) float64 {
	if len(landmarks) < 2 {
		return 0
	}
	minX, maxX := landmarks[0], landmarks[0]
	minY, maxY := landmarks[1], landmarks[1]
	for i := 0; i+1 < len(landmarks); i += 2 {
		x, y := landmarks[i], landmarks[i+1]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return (maxX - minX) * (maxY - minY) * 100
}
