package transform

import (
	"testing"

	"go.viam.com/test"
)

func TestCheckValid(t *testing.T) {
	params := exampleLeftIntrinsics()
	test.That(t, params.CheckValid(), test.ShouldBeNil)

	var nilParams *PinholeCameraIntrinsics
	err := nilParams.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ErrNoIntrinsics.Error())

	zeroFocal := exampleLeftIntrinsics()
	zeroFocal.Fx = 0
	err = zeroFocal.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Fx")

	zeroSize := exampleLeftIntrinsics()
	zeroSize.Width = 0
	test.That(t, zeroSize.CheckValid(), test.ShouldNotBeNil)

	negativePrincipal := exampleLeftIntrinsics()
	negativePrincipal.Ppy = -1
	test.That(t, negativePrincipal.CheckValid(), test.ShouldNotBeNil)
}

func TestScaled(t *testing.T) {
	params := exampleLeftIntrinsics()
	scaled := params.Scaled(2)
	test.That(t, scaled.Width, test.ShouldEqual, 1280)
	test.That(t, scaled.Height, test.ShouldEqual, 960)
	test.That(t, scaled.Fx, test.ShouldAlmostEqual, 1000)
	test.That(t, scaled.Fy, test.ShouldAlmostEqual, 1000)
	test.That(t, scaled.Ppx, test.ShouldAlmostEqual, 640)
	test.That(t, scaled.Ppy, test.ShouldAlmostEqual, 480)
	// the receiver is untouched
	test.That(t, params.Fx, test.ShouldAlmostEqual, 500)
}

func TestIntrinsicsSaveLoad(t *testing.T) {
	dir := t.TempDir()
	params := exampleLeftIntrinsics()
	params.SetName("front_left")
	test.That(t, params.SaveToDir(dir), test.ShouldBeNil)

	loaded := &PinholeCameraIntrinsics{}
	test.That(t, loaded.LoadFromDir(dir, "front_left"), test.ShouldBeNil)
	test.That(t, *loaded, test.ShouldResemble, *params)

	// missing file
	missing := &PinholeCameraIntrinsics{}
	err := missing.LoadFromDir(dir, "back_left")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "back_left")

	// saving without a name fails
	unnamed := exampleLeftIntrinsics()
	test.That(t, unnamed.SaveToDir(dir), test.ShouldNotBeNil)
}

func TestCameraMatrix(t *testing.T) {
	params := exampleLeftIntrinsics()
	k := params.CameraMatrix()
	test.That(t, k.At(0, 0), test.ShouldAlmostEqual, 500)
	test.That(t, k.At(1, 1), test.ShouldAlmostEqual, 500)
	test.That(t, k.At(0, 2), test.ShouldAlmostEqual, 320)
	test.That(t, k.At(1, 2), test.ShouldAlmostEqual, 240)
	test.That(t, k.At(2, 2), test.ShouldAlmostEqual, 1)
	test.That(t, k.At(0, 1), test.ShouldAlmostEqual, 0)
}

func TestProjection(t *testing.T) {
	params := exampleLeftIntrinsics()
	x, y, z := params.PixelToPoint(320, 240, 2)
	test.That(t, x, test.ShouldAlmostEqual, 0)
	test.That(t, y, test.ShouldAlmostEqual, 0)
	test.That(t, z, test.ShouldAlmostEqual, 2)

	u, v := params.PointToPixel(x, y, z)
	test.That(t, u, test.ShouldAlmostEqual, 320)
	test.That(t, v, test.ShouldAlmostEqual, 240)

	// zero depth maps out of frame
	u, v = params.PointToPixel(1, 1, 0)
	test.That(t, u, test.ShouldAlmostEqual, -1)
	test.That(t, v, test.ShouldAlmostEqual, -1)
}
