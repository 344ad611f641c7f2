package transform

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/stereocam/logging"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)
	model := exampleStereoModel(t)

	test.That(t, model.Save(dir, false), test.ShouldBeNil)

	loaded := NewStereoCameraModel(logger)
	test.That(t, loaded.Load(dir, "front", false), test.ShouldBeNil)

	// camera_name is persisted and loaded as a string identifier
	test.That(t, loaded.Name, test.ShouldEqual, "front")
	test.That(t, *loaded.Left, test.ShouldResemble, *model.Left)
	test.That(t, *loaded.Right, test.ShouldResemble, *model.Right)
	test.That(t, mat.EqualApprox(loaded.Rotation(), model.Rotation(), 1e-9), test.ShouldBeTrue)
	test.That(t, mat.EqualApprox(loaded.Translation(), model.Translation(), 1e-9), test.ShouldBeTrue)
	test.That(t, mat.EqualApprox(loaded.Essential(), model.Essential(), 1e-9), test.ShouldBeTrue)
	test.That(t, mat.EqualApprox(loaded.Fundamental(), model.Fundamental(), 1e-9), test.ShouldBeTrue)
	test.That(t, loaded.Baseline(), test.ShouldAlmostEqual, 0.1)
}

func TestLoadMissingPoseFile(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)

	// write only the monocular calibrations
	model := exampleStereoModel(t)
	test.That(t, model.Save(dir, true), test.ShouldBeNil)
	_, err := os.Stat(filepath.Join(dir, "front_pose.yaml"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)

	// extrinsics are mandatory at read time
	loaded := NewStereoCameraModel(logger)
	err = loaded.Load(dir, "front", false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "front_pose.yaml")

	// unless explicitly ignored
	loaded = NewStereoCameraModel(logger)
	test.That(t, loaded.Load(dir, "front", true), test.ShouldBeNil)
	test.That(t, loaded.Rotation(), test.ShouldBeNil)
	test.That(t, loaded.Translation(), test.ShouldBeNil)
	test.That(t, loaded.Essential(), test.ShouldBeNil)
	test.That(t, loaded.Fundamental(), test.ShouldBeNil)
	test.That(t, loaded.Left.Fx, test.ShouldAlmostEqual, 500)
}

func TestSaveSkipsPoseWithoutExtrinsics(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)

	model := NewStereoCameraModel(logger)
	model.Left = exampleLeftIntrinsics()
	model.Right = exampleRightIntrinsics()
	model.SetName("front")

	// no extrinsics: overall save still succeeds, pose file silently skipped
	test.That(t, model.Save(dir, false), test.ShouldBeNil)
	_, err := os.Stat(filepath.Join(dir, "front_pose.yaml"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	_, err = os.Stat(filepath.Join(dir, "front_left.yaml"))
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(filepath.Join(dir, "front_right.yaml"))
	test.That(t, err, test.ShouldBeNil)
}

func TestLoadFailsWhenMonocularMissing(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)

	model := NewStereoCameraModel(logger)
	err := model.Load(dir, "front", true)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "left camera")
}

func TestLoadMalformedPoseFile(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)

	model := exampleStereoModel(t)
	test.That(t, model.Save(dir, false), test.ShouldBeNil)

	poseFile, err := readStereoPoseFile(filepath.Join(dir, "front_pose.yaml"))
	test.That(t, err, test.ShouldBeNil)

	// shape claims 3x3 but data length disagrees
	bad := *poseFile
	bad.RotationMatrix.Data = bad.RotationMatrix.Data[:8]
	test.That(t, bad.write(filepath.Join(dir, "front_pose.yaml")), test.ShouldBeNil)
	loaded := NewStereoCameraModel(logger)
	err = loaded.Load(dir, "front", false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "does not match data length")

	// translation must be a 3x1 column
	bad = *poseFile
	bad.TranslationMatrix = matrixBlock{Rows: 1, Cols: 3, Data: []float64{-0.1, 0, 0}}
	test.That(t, bad.write(filepath.Join(dir, "front_pose.yaml")), test.ShouldBeNil)
	loaded = NewStereoCameraModel(logger)
	err = loaded.Load(dir, "front", false)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected shape 3x1")
}

func TestPoseFileNameWins(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewTestLogger(t)

	model := exampleStereoModel(t)
	test.That(t, model.Save(dir, false), test.ShouldBeNil)

	// rewrite the pose file under the same path with a different recorded name
	poseFile, err := readStereoPoseFile(filepath.Join(dir, "front_pose.yaml"))
	test.That(t, err, test.ShouldBeNil)
	poseFile.CameraName = "front_recalibrated"
	test.That(t, poseFile.write(filepath.Join(dir, "front_pose.yaml")), test.ShouldBeNil)

	loaded := NewStereoCameraModel(logger)
	test.That(t, loaded.Load(dir, "front", false), test.ShouldBeNil)
	test.That(t, loaded.Name, test.ShouldEqual, "front_recalibrated")
}
