// Package main is a command that prints the contents of a stereo calibration.
package main

import (
	"flag"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"go.viam.com/stereocam/logging"
	"go.viam.com/stereocam/transform"
)

var logger = logging.NewLogger("stereo_info")

func main() {
	dir := flag.String("dir", ".", "directory holding the calibration files")
	name := flag.String("name", "", "camera name the calibration is stored under")
	ignorePose := flag.Bool("ignore-pose", false, "skip loading the extrinsic pose file")
	maxDepth := flag.Int("max-depth", int(transform.MaxDepth), "max sensor depth in millimeters for the depth table")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *maxDepth > int(transform.MaxDepth) {
		*maxDepth = int(transform.MaxDepth)
	}

	model := transform.NewStereoCameraModel(logger)
	if err := model.Load(*dir, *name, *ignorePose); err != nil {
		logger.Fatalf("cannot load stereo calibration %q from %q: %v", *name, *dir, err)
	}

	fmt.Printf("camera: %s\n", model.Name)
	printIntrinsics("left", model.Left)
	printIntrinsics("right", model.Right)

	if model.Rotation() == nil {
		fmt.Println("no extrinsic calibration loaded")
		return
	}
	fmt.Printf("baseline: %.4f\n", model.Baseline())
	fmt.Printf("stereo transform:\n%v\n",
		mat.Formatted(model.StereoTransform().PoseMat, mat.Prefix(""), mat.Squeeze()))

	if model.IsValid() {
		fmt.Println("disparity -> depth:")
		for _, disparity := range []float32{1, 2, 4, 8, 16, 32, 64, 128} {
			fmt.Printf("  %7.1f px -> %8.4f\n", disparity, model.ComputeDepth(disparity))
		}
		fmt.Println("sensor depth (mm) -> disparity:")
		for mm := 250; mm <= *maxDepth; mm *= 2 {
			fmt.Printf("  %6d mm -> %8.4f px\n", mm, model.ComputeDisparityFromDepth(transform.Depth(mm)))
		}
	}
}

func printIntrinsics(side string, params *transform.PinholeCameraIntrinsics) {
	fmt.Printf("%s (%s): %dx%d fx=%.2f fy=%.2f ppx=%.2f ppy=%.2f\n",
		side, params.Name, params.Width, params.Height, params.Fx, params.Fy, params.Ppx, params.Ppy)
}
