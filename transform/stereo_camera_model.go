package transform

import (
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/stereocam/logging"
)

// Depth is the depth reported by a depth sensor for one pixel, in millimeters.
type Depth uint16

// MaxDepth is the maximum representable sensor depth.
const MaxDepth = Depth(^uint16(0))

// StereoCameraModel models a calibrated stereo camera rig: the two monocular
// camera calibrations plus the extrinsic geometry relating them. The rotation
// matrix takes points from the right camera frame to the left. Rotation and
// translation are either both present or both nil; nil means no extrinsic
// calibration is loaded.
//
// A model is not safe for concurrent use; callers needing concurrent access must
// serialize externally.
type StereoCameraModel struct {
	Name  string
	Left  *PinholeCameraIntrinsics
	Right *PinholeCameraIntrinsics

	rotation    *mat.Dense // 3x3
	translation *mat.Dense // 3x1
	essential   *mat.Dense // 3x3
	fundamental *mat.Dense // 3x3

	logger logging.Logger
}

// NewStereoCameraModel returns an empty stereo model ready to be loaded from disk.
func NewStereoCameraModel(logger logging.Logger) *StereoCameraModel {
	return &StereoCameraModel{
		Left:   &PinholeCameraIntrinsics{},
		Right:  &PinholeCameraIntrinsics{},
		logger: logger,
	}
}

// NewStereoCameraModelFromParameters builds a stereo model from already-known
// calibration parameters. Rotation and translation must be given together or
// not at all; essential and fundamental may be nil.
func NewStereoCameraModelFromParameters(
	name string,
	left, right *PinholeCameraIntrinsics,
	rotation, translation, essential, fundamental *mat.Dense,
	logger logging.Logger,
) (*StereoCameraModel, error) {
	model := &StereoCameraModel{
		Left:   left,
		Right:  right,
		logger: logger,
	}
	model.SetName(name)
	if err := model.SetExtrinsics(rotation, translation); err != nil {
		return nil, err
	}
	if err := model.SetEpipolarMatrices(essential, fundamental); err != nil {
		return nil, err
	}
	return model, nil
}

// SetName sets the model's identifier and renames both child models with
// "_left"/"_right" suffixes. This is the sole mechanism coupling the stereo
// model's identity to its children's identities.
func (model *StereoCameraModel) SetName(name string) {
	model.Name = name
	model.Left.SetName(name + "_left")
	model.Right.SetName(name + "_right")
}

// SetExtrinsics sets the rotation and translation relating the two cameras.
// Both must be given (3x3 and 3x1), or both nil to clear the extrinsics.
func (model *StereoCameraModel) SetExtrinsics(rotation, translation *mat.Dense) error {
	if rotation == nil && translation == nil {
		model.rotation = nil
		model.translation = nil
		return nil
	}
	if rotation == nil || translation == nil {
		return errors.New("rotation and translation must be set together")
	}
	if r, c := rotation.Dims(); r != 3 || c != 3 {
		return errors.Errorf("rotation matrix must be 3x3, got %dx%d", r, c)
	}
	if r, c := translation.Dims(); r != 3 || c != 1 {
		return errors.Errorf("translation matrix must be 3x1, got %dx%d", r, c)
	}
	model.rotation = mat.DenseCopyOf(rotation)
	model.translation = mat.DenseCopyOf(translation)
	return nil
}

// SetEpipolarMatrices sets the essential and fundamental matrices. Either may be
// nil to clear it.
func (model *StereoCameraModel) SetEpipolarMatrices(essential, fundamental *mat.Dense) error {
	for _, m := range []struct {
		name string
		mat  *mat.Dense
	}{{"essential", essential}, {"fundamental", fundamental}} {
		if m.mat == nil {
			continue
		}
		if r, c := m.mat.Dims(); r != 3 || c != 3 {
			return errors.Errorf("%s matrix must be 3x3, got %dx%d", m.name, r, c)
		}
	}
	if essential != nil {
		model.essential = mat.DenseCopyOf(essential)
	} else {
		model.essential = nil
	}
	if fundamental != nil {
		model.fundamental = mat.DenseCopyOf(fundamental)
	} else {
		model.fundamental = nil
	}
	return nil
}

// Rotation returns the 3x3 rotation matrix, or nil if no extrinsics are loaded.
func (model *StereoCameraModel) Rotation() *mat.Dense { return model.rotation }

// Translation returns the 3x1 translation matrix, or nil if no extrinsics are loaded.
func (model *StereoCameraModel) Translation() *mat.Dense { return model.translation }

// Essential returns the 3x3 essential matrix, or nil if absent.
func (model *StereoCameraModel) Essential() *mat.Dense { return model.essential }

// Fundamental returns the 3x3 fundamental matrix, or nil if absent.
func (model *StereoCameraModel) Fundamental() *mat.Dense { return model.fundamental }

// IsValid returns whether both monocular calibrations are usable for
// depth/disparity math.
func (model *StereoCameraModel) IsValid() bool {
	return model.Left.CheckValid() == nil && model.Right.CheckValid() == nil
}

// Baseline returns the physical distance between the two camera optical centers
// in the unit of the translation vector, or 0 when no extrinsics are loaded.
func (model *StereoCameraModel) Baseline() float64 {
	if model.translation == nil {
		return 0
	}
	t := r3.Vector{
		X: model.translation.At(0, 0),
		Y: model.translation.At(1, 0),
		Z: model.translation.At(2, 0),
	}
	return t.Norm()
}

func (model *StereoCameraModel) poseFilePath(dir, name string) string {
	return filepath.Join(dir, name+"_pose.yaml")
}

// Load reads the calibration stored under cameraName in the given directory: the
// two monocular calibrations, and, unless ignoreStereoTransform is set, the
// extrinsic pose file. A missing pose file is an error; extrinsics are mandatory
// at read time unless explicitly ignored. The model's state is unspecified after
// a failed load and must not be reused.
func (model *StereoCameraModel) Load(dir, cameraName string, ignoreStereoTransform bool) error {
	model.SetName(cameraName)
	if err := model.Left.LoadFromDir(dir, cameraName+"_left"); err != nil {
		return errors.Wrapf(err, "cannot load left camera of stereo rig %q", cameraName)
	}
	if err := model.Right.LoadFromDir(dir, cameraName+"_right"); err != nil {
		return errors.Wrapf(err, "cannot load right camera of stereo rig %q", cameraName)
	}
	if ignoreStereoTransform {
		return nil
	}

	model.rotation = nil
	model.translation = nil
	model.essential = nil
	model.fundamental = nil

	filePath := model.poseFilePath(dir, cameraName)
	if _, err := os.Stat(filePath); err != nil {
		model.logger.Warnw("could not load stereo calibration file", "path", filePath, "error", err)
		return errors.Wrapf(err, "stereo calibration file %q is required", filePath)
	}
	model.logger.Infow("reading stereo calibration file", "path", filePath)
	poseFile, err := readStereoPoseFile(filePath)
	if err != nil {
		return err
	}

	rotation, err := poseFile.RotationMatrix.matrix("rotation_matrix", 3, 3)
	if err != nil {
		return err
	}
	translation, err := poseFile.TranslationMatrix.matrix("translation_matrix", 3, 1)
	if err != nil {
		return err
	}
	essential, err := poseFile.EssentialMatrix.matrix("essential_matrix", 3, 3)
	if err != nil {
		return err
	}
	fundamental, err := poseFile.FundamentalMatrix.matrix("fundamental_matrix", 3, 3)
	if err != nil {
		return err
	}

	// the name recorded in the pose file wins over the requested one
	model.Name = poseFile.CameraName
	model.rotation = rotation
	model.translation = translation
	model.essential = essential
	model.fundamental = fundamental
	return nil
}

// Save writes the calibration to the given directory. The two monocular
// calibrations are always written; the extrinsic pose file is written only when
// name, rotation and translation are all present, and is silently skipped
// otherwise. This mirrors incremental calibration workflows where extrinsics
// arrive after the monocular calibrations.
func (model *StereoCameraModel) Save(dir string, ignoreStereoTransform bool) error {
	if err := model.Left.SaveToDir(dir); err != nil {
		return errors.Wrapf(err, "cannot save left camera of stereo rig %q", model.Name)
	}
	if err := model.Right.SaveToDir(dir); err != nil {
		return errors.Wrapf(err, "cannot save right camera of stereo rig %q", model.Name)
	}
	if ignoreStereoTransform {
		return nil
	}
	if model.Name == "" || model.rotation == nil || model.translation == nil {
		return nil
	}

	filePath := model.poseFilePath(dir, model.Name)
	model.logger.Infow("saving stereo calibration file", "path", filePath)
	poseFile := &stereoPoseFile{
		CameraName:        model.Name,
		RotationMatrix:    newMatrixBlock(model.rotation),
		TranslationMatrix: newMatrixBlock(model.translation),
	}
	if model.essential != nil {
		poseFile.EssentialMatrix = newMatrixBlock(model.essential)
	}
	if model.fundamental != nil {
		poseFile.FundamentalMatrix = newMatrixBlock(model.fundamental)
	}
	return poseFile.write(filePath)
}

// Scale replaces the left and right calibrations with copies rescaled for images
// resized by the given factor. The extrinsic matrices are untouched; baseline is
// a physical length, not an image-resolution-dependent quantity.
func (model *StereoCameraModel) Scale(scale float64) {
	left := model.Left.Scaled(scale)
	right := model.Right.Scaled(scale)
	model.Left = &left
	model.Right = &right
}

func (model *StereoCameraModel) mustBeValid() {
	if !model.IsValid() {
		panic("stereo camera model is not valid for depth/disparity computation")
	}
}

// ComputeDepth converts a disparity in pixels to a depth in the baseline's unit.
// Zero disparity yields zero depth. The model must be valid.
func (model *StereoCameraModel) ComputeDepth(disparity float32) float32 {
	// depth = baseline * fx / (disparity + cx1 - cx0)
	model.mustBeValid()
	if disparity == 0.0 {
		return 0.0
	}
	return float32(model.Baseline()) * float32(model.Left.Fx) /
		(disparity + float32(model.Right.Ppx) - float32(model.Left.Ppx))
}

// ComputeDisparity converts a depth in the baseline's unit to a disparity in
// pixels. Zero depth yields zero disparity. The model must be valid.
func (model *StereoCameraModel) ComputeDisparity(depth float32) float32 {
	// disparity = (baseline * fx / depth) - (cx1 - cx0)
	model.mustBeValid()
	if depth == 0.0 {
		return 0.0
	}
	return float32(model.Baseline())*float32(model.Left.Fx)/depth -
		float32(model.Right.Ppx) + float32(model.Left.Ppx)
}

// ComputeDisparityFromDepth converts a quantized sensor depth in millimeters to a
// disparity in pixels. Zero depth yields zero disparity. The model must be valid.
func (model *StereoCameraModel) ComputeDisparityFromDepth(depth Depth) float32 {
	model.mustBeValid()
	if depth == 0 {
		return 0.0
	}
	return model.ComputeDisparity(float32(depth) / 1000.0)
}

// StereoTransform returns the rigid transform relating the two camera frames,
// or the identity transform when no extrinsics are loaded. It never fails.
func (model *StereoCameraModel) StereoTransform() *RigidTransform {
	if model.rotation != nil && model.translation != nil {
		transform, err := NewRigidTransformFromRT(model.rotation, model.translation)
		if err != nil {
			// shapes are enforced on every set/load path
			panic(err)
		}
		return transform
	}
	return NewRigidTransform()
}
