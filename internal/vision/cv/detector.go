package cv

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/vision"
)

// Normalisation for float (non-quantised) models.
const (
	inputMean = 127.5
	inputStd  = 127.5
)

// detectionOutputClassOffset drops the background class that the TFLite
// detection post-process gains when imported as a DetectionOutput layer.
const detectionOutputClassOffset = 1

// DetectorConfig holds detector configuration.
type DetectorConfig struct {
	ModelPath   string
	InputWidth  int
	InputHeight int
	// FloatModel scales pixels to [-1, 1]; quantised models take raw pixels.
	FloatModel bool
}

// Detector runs an SSD-style detection model through the OpenCV DNN module.
// It reads either a single DetectionOutput blob, which is what OpenCV makes
// of a TFLite detection post-process, or separate boxes, classes and scores.
type Detector struct {
	net       gocv.Net
	config    DetectorConfig
	inputSize image.Point
	outputs   []string
}

// NewDetector loads the model. The format is picked from the file extension.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNet(cfg.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	var outputs []string
	for _, id := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(id)
		outputs = append(outputs, layer.GetName())
		layer.Close()
	}
	if len(outputs) != 1 && len(outputs) < 3 {
		net.Close()
		return nil, fmt.Errorf("model %s has %d outputs, want one detection blob or boxes, classes and scores", cfg.ModelPath, len(outputs))
	}

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
		outputs:   outputs,
	}, nil
}

// Detect runs one forward pass and returns the candidates by descending score.
func (d *Detector) Detect(frame vision.Frame) (logic.RawResult, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return logic.RawResult{}, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.Mat.Empty() {
		return logic.RawResult{}, fmt.Errorf("empty image")
	}

	scale, mean := 1.0, gocv.NewScalar(0, 0, 0, 0)
	if d.config.FloatModel {
		scale, mean = 1.0/inputStd, gocv.NewScalar(inputMean, inputMean, inputMean, 0)
	}

	// Camera frames are BGR; the model expects RGB.
	blob := gocv.BlobFromImage(f.Mat, scale, d.inputSize, mean, true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(d.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	if len(outs) == 1 {
		return parseDetectionBlob(outs[0])
	}

	boxes, err := outs[0].DataPtrFloat32()
	if err != nil {
		return logic.RawResult{}, fmt.Errorf("read boxes: %w", err)
	}
	classes, err := outs[1].DataPtrFloat32()
	if err != nil {
		return logic.RawResult{}, fmt.Errorf("read classes: %w", err)
	}
	scores, err := outs[2].DataPtrFloat32()
	if err != nil {
		return logic.RawResult{}, fmt.Errorf("read scores: %w", err)
	}

	// ParseSSD copies out of the Mats before they are closed.
	return vision.ParseSSD(boxes, classes, scores)
}

// parseDetectionBlob reads a single [1,1,N,7] DetectionOutput blob.
func parseDetectionBlob(m gocv.Mat) (logic.RawResult, error) {
	if dims := m.Size(); len(dims) == 0 || dims[len(dims)-1] != vision.DetectionRowWidth {
		return logic.RawResult{}, fmt.Errorf("detection output shape %v, want rows of %d", dims, vision.DetectionRowWidth)
	}
	data, err := m.DataPtrFloat32()
	if err != nil {
		return logic.RawResult{}, fmt.Errorf("read detections: %w", err)
	}
	return vision.ParseDetectionOutput(data, detectionOutputClassOffset)
}

// Close releases the network.
func (d *Detector) Close() error {
	return d.net.Close()
}
