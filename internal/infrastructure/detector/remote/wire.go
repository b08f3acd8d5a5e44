package remote

// Request is the body of POST /detect.
type Request struct {
	Image         string  `json:"image"`
	Confidence    float64 `json:"confidence"`
	MaxDetections int     `json:"max_detections"`
}

// WireDetection carries a box as [x1, y1, x2, y2] in the pixel space of the
// submitted image.
type WireDetection struct {
	Label      string  `json:"label"`
	Box        []int   `json:"box"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

type Response struct {
	Detections     []WireDetection `json:"detections"`
	ProcessingTime float64         `json:"processing_time"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
