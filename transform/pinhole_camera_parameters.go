// Package transform provides camera models for a calibrated stereo rig and the
// conversions between disparity and depth used by stereo pipelines.
package transform

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection
// of a 3D scene to the 2D plane, plus the name the calibration is stored under.
type PinholeCameraIntrinsics struct {
	Name   string  `yaml:"camera_name"`
	Width  int     `yaml:"width_px"`
	Height int     `yaml:"height_px"`
	Fx     float64 `yaml:"fx"`
	Fy     float64 `yaml:"fy"`
	Ppx    float64 `yaml:"ppx"`
	Ppy    float64 `yaml:"ppy"`
}

// SetName sets the name the calibration will be stored under.
func (params *PinholeCameraIntrinsics) SetName(name string) {
	params.Name = name
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromYAMLFile takes in a file path to a YAML calibration
// and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromYAMLFile(yamlPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	yamlFile, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening YAML file")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := yaml.Unmarshal(yamlFile, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing YAML data")
	}
	return intrinsics, nil
}

// LoadFromDir loads the calibration stored under name within the given directory,
// replacing the receiver's fields. The name the file was requested under wins over
// any name recorded inside the file.
func (params *PinholeCameraIntrinsics) LoadFromDir(dir, name string) error {
	loaded, err := NewPinholeCameraIntrinsicsFromYAMLFile(filepath.Join(dir, name+".yaml"))
	if err != nil {
		return errors.Wrapf(err, "cannot load camera calibration %q", name)
	}
	*params = *loaded
	params.Name = name
	return nil
}

// SaveToDir writes the calibration to {dir}/{name}.yaml using the receiver's name.
func (params *PinholeCameraIntrinsics) SaveToDir(dir string) error {
	if params.Name == "" {
		return errors.New("camera calibration has no name to save under")
	}
	data, err := yaml.Marshal(params)
	if err != nil {
		return errors.Wrap(err, "error marshaling camera calibration")
	}
	filePath := filepath.Join(dir, params.Name+".yaml")
	//nolint:gosec
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "cannot create camera calibration file %q", filePath)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "cannot write camera calibration file %q", filePath)
	}
	return nil
}

// Scaled returns a copy of the intrinsics rescaled for an image resized by the
// given factor.
func (params PinholeCameraIntrinsics) Scaled(scale float64) PinholeCameraIntrinsics {
	scaled := params
	scaled.Width = int(math.Round(float64(params.Width) * scale))
	scaled.Height = int(math.Round(float64(params.Height) * scale))
	scaled.Fx = params.Fx * scale
	scaled.Fy = params.Fy * scale
	scaled.Ppx = params.Ppx * scale
	scaled.Ppy = params.Ppy * scale
	return scaled
}

// PixelToPoint transforms a pixel with depth to a 3D point. The intrinsics
// parameters should be the ones of the sensor used to obtain the image that
// contains the pixel.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// PointToPixel projects a 3D point to a pixel in an image plane.
// The intrinsics parameters should be the ones of the sensor we want to project to.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		xPx := math.Round((x/z)*params.Fx + params.Ppx)
		yPx := math.Round((y/z)*params.Fy + params.Ppy)
		return xPx, yPx
	}
	// if depth is zero at this pixel, return negative coordinates so that the
	// cropping to image bounds will filter it out
	return -1.0, -1.0
}

// CameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) CameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}
