package transform

import (
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"
)

// matrixBlock is the on-disk form of one matrix in a stereo pose file, following
// the ROS calibration format: explicit shape plus a flat row-major data list.
type matrixBlock struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data,flow"`
}

// stereoPoseFile is the persisted extrinsic calibration of a stereo rig,
// stored as {dir}/{name}_pose.yaml.
type stereoPoseFile struct {
	CameraName        string      `yaml:"camera_name"`
	RotationMatrix    matrixBlock `yaml:"rotation_matrix"`
	TranslationMatrix matrixBlock `yaml:"translation_matrix"`
	EssentialMatrix   matrixBlock `yaml:"essential_matrix"`
	FundamentalMatrix matrixBlock `yaml:"fundamental_matrix"`
}

// newMatrixBlock flattens a matrix row-major into its on-disk form.
func newMatrixBlock(m *mat.Dense) matrixBlock {
	rows, cols := m.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return matrixBlock{Rows: rows, Cols: cols, Data: data}
}

// matrix reconstructs the block as a dense matrix, validating that the stored
// shape matches both the data length and the shape the caller expects.
func (b matrixBlock) matrix(name string, wantRows, wantCols int) (*mat.Dense, error) {
	if b.Rows*b.Cols != len(b.Data) {
		return nil, errors.Errorf("%s: shape %dx%d does not match data length %d",
			name, b.Rows, b.Cols, len(b.Data))
	}
	if b.Rows != wantRows || b.Cols != wantCols {
		return nil, errors.Errorf("%s: expected shape %dx%d, got %dx%d",
			name, wantRows, wantCols, b.Rows, b.Cols)
	}
	data := make([]float64, len(b.Data))
	copy(data, b.Data)
	return mat.NewDense(b.Rows, b.Cols, data), nil
}

func readStereoPoseFile(filePath string) (*stereoPoseFile, error) {
	//nolint:gosec
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read stereo calibration file %q", filePath)
	}
	poseFile := &stereoPoseFile{}
	if err := yaml.Unmarshal(data, poseFile); err != nil {
		return nil, errors.Wrapf(err, "cannot parse stereo calibration file %q", filePath)
	}
	return poseFile, nil
}

func (pf *stereoPoseFile) write(filePath string) error {
	data, err := yaml.Marshal(pf)
	if err != nil {
		return errors.Wrap(err, "error marshaling stereo calibration")
	}
	//nolint:gosec
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "cannot create stereo calibration file %q", filePath)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "cannot write stereo calibration file %q", filePath)
	}
	return nil
}
