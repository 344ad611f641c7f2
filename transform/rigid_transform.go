package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RigidTransform stores the 3x4 pose matrix relating two camera frames as well as
// its 3x3 rotation and 3x1 translation blocks.
type RigidTransform struct {
	PoseMat     *mat.Dense
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// NewRigidTransform returns the identity transform (no rotation, no translation).
func NewRigidTransform() *RigidTransform {
	pose := mat.NewDense(3, 4, nil)
	for i := 0; i < 3; i++ {
		pose.Set(i, i, 1)
	}
	return newRigidTransformFromMat(pose)
}

// NewRigidTransformFromRT creates a rigid transform from a 3x3 rotation matrix and
// a 3x1 translation matrix. Transform row i is rotation row i with the translation
// element as the 4th column.
func NewRigidTransformFromRT(rotation, translation *mat.Dense) (*RigidTransform, error) {
	if r, c := rotation.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("rotation matrix must be 3x3, got %dx%d", r, c)
	}
	if r, c := translation.Dims(); r != 3 || c != 1 {
		return nil, errors.Errorf("translation matrix must be 3x1, got %dx%d", r, c)
	}
	var pose mat.Dense
	pose.Augment(rotation, translation)
	return newRigidTransformFromMat(&pose), nil
}

func newRigidTransformFromMat(pose *mat.Dense) *RigidTransform {
	lastCol := pose.ColView(3)
	t := mat.NewDense(3, 1, []float64{lastCol.AtVec(0), lastCol.AtVec(1), lastCol.AtVec(2)})
	rot := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rot.Set(i, j, pose.At(i, j))
		}
	}
	return &RigidTransform{
		PoseMat:     pose,
		Rotation:    rot,
		Translation: t,
	}
}

// TranslationVector returns the translation block as a 3D vector.
func (rt *RigidTransform) TranslationVector() r3.Vector {
	return r3.Vector{
		X: rt.Translation.At(0, 0),
		Y: rt.Translation.At(1, 0),
		Z: rt.Translation.At(2, 0),
	}
}

// TransformPoint applies the rigid transform to a 3D point.
func (rt *RigidTransform) TransformPoint(pt r3.Vector) r3.Vector {
	p := mat.NewDense(4, 1, []float64{pt.X, pt.Y, pt.Z, 1})
	var out mat.Dense
	out.Mul(rt.PoseMat, p)
	return r3.Vector{X: out.At(0, 0), Y: out.At(1, 0), Z: out.At(2, 0)}
}

// IsIdentity returns whether the transform is the identity transform.
func (rt *RigidTransform) IsIdentity() bool {
	identity := NewRigidTransform()
	return mat.EqualApprox(rt.PoseMat, identity.PoseMat, 1e-12)
}
